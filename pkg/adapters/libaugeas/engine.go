//go:build libaugeas

package libaugeas

/*
#cgo pkg-config: augeas
#include <stdio.h>
#include <stdlib.h>
#include <augeas.h>

static int srun_capture(augeas *aug, const char *text, char **out, size_t *len) {
	FILE *f = open_memstream(out, len);
	if (f == NULL)
		return -1;
	int r = aug_srun(aug, f, text);
	fclose(f);
	return r;
}
*/
import "C"

import (
	"errors"
	"strings"
	"unsafe"

	"github.com/aretw0/augeas/pkg/ports"
	"github.com/aretw0/augeas/pkg/registry"
)

// Name is the name the engine is registered under.
const Name = "libaugeas"

func init() {
	registry.Register(Name, Open)
}

// Engine is a handle returned by aug_init.
type Engine struct {
	aug *C.augeas
}

var _ ports.Engine = (*Engine)(nil)

// ErrInit is returned when aug_init could not create a handle at all.
var ErrInit = errors.New("libaugeas: aug_init failed")

// Open implements ports.OpenFunc. The load path is joined with ':' the way
// AUGEAS_LENS_LIB expects it.
func Open(root string, loadPath []string, flags ports.Flags) (ports.Engine, error) {
	croot := cstring(root)
	defer free(croot)
	cload := cstring(strings.Join(loadPath, ":"))
	defer free(cload)

	aug := C.aug_init(croot, cload, C.uint(flags))
	if aug == nil {
		return nil, ErrInit
	}
	return &Engine{aug: aug}, nil
}

// cstring returns NULL for the empty string, which aug_init reads as "use
// the default".
func cstring(s string) *C.char {
	if s == "" {
		return nil
	}
	return C.CString(s)
}

func cvalue(v *string) *C.char {
	if v == nil {
		return nil
	}
	return C.CString(*v)
}

func free(p *C.char) {
	if p != nil {
		C.free(unsafe.Pointer(p))
	}
}

func gostring(p *C.char) *string {
	if p == nil {
		return nil
	}
	s := C.GoString(p)
	return &s
}

// Close implements ports.Engine.
func (e *Engine) Close() error {
	if e.aug != nil {
		C.aug_close(e.aug)
		e.aug = nil
	}
	return nil
}

// Get implements ports.Engine.
func (e *Engine) Get(path string) (*string, int) {
	if e.aug == nil {
		return nil, -1
	}
	cpath := C.CString(path)
	defer free(cpath)
	var out *C.char
	rc := int(C.aug_get(e.aug, cpath, &out))
	if rc != 1 {
		return nil, rc
	}
	return gostring(out), rc
}

// Label implements ports.Engine.
func (e *Engine) Label(path string) (*string, int) {
	if e.aug == nil {
		return nil, -1
	}
	cpath := C.CString(path)
	defer free(cpath)
	var out *C.char
	rc := int(C.aug_label(e.aug, cpath, &out))
	if rc != 1 {
		return nil, rc
	}
	return gostring(out), rc
}

// Set implements ports.Engine.
func (e *Engine) Set(path string, value *string) int {
	if e.aug == nil {
		return -1
	}
	cpath := C.CString(path)
	defer free(cpath)
	cval := cvalue(value)
	defer free(cval)
	return int(C.aug_set(e.aug, cpath, cval))
}

// SetM implements ports.Engine.
func (e *Engine) SetM(base, sub string, value *string) int {
	if e.aug == nil {
		return -1
	}
	cbase := C.CString(base)
	defer free(cbase)
	csub := cstring(sub)
	defer free(csub)
	cval := cvalue(value)
	defer free(cval)
	return int(C.aug_setm(e.aug, cbase, csub, cval))
}

// Rm implements ports.Engine.
func (e *Engine) Rm(path string) int {
	if e.aug == nil {
		return -1
	}
	cpath := C.CString(path)
	defer free(cpath)
	return int(C.aug_rm(e.aug, cpath))
}

// Mv implements ports.Engine.
func (e *Engine) Mv(src, dst string) int {
	if e.aug == nil {
		return -1
	}
	csrc := C.CString(src)
	defer free(csrc)
	cdst := C.CString(dst)
	defer free(cdst)
	return int(C.aug_mv(e.aug, csrc, cdst))
}

// Match implements ports.Engine.
func (e *Engine) Match(path string) ([]string, int) {
	if e.aug == nil {
		return nil, -1
	}
	cpath := C.CString(path)
	defer free(cpath)

	var matches **C.char
	rc := int(C.aug_match(e.aug, cpath, &matches))
	if rc <= 0 {
		return nil, rc
	}
	defer C.free(unsafe.Pointer(matches))

	list := unsafe.Slice(matches, rc)
	paths := make([]string, rc)
	for i, p := range list {
		paths[i] = C.GoString(p)
		C.free(unsafe.Pointer(p))
	}
	return paths, rc
}

// Exists implements ports.Engine. It counts matches without copying them
// out of the library.
func (e *Engine) Exists(path string) int {
	if e.aug == nil {
		return -1
	}
	cpath := C.CString(path)
	defer free(cpath)
	rc := int(C.aug_match(e.aug, cpath, nil))
	if rc > 0 {
		return 1
	}
	return rc
}

// DefVar implements ports.Engine.
func (e *Engine) DefVar(name string, expr *string) int {
	if e.aug == nil {
		return -1
	}
	cname := C.CString(name)
	defer free(cname)
	cexpr := cvalue(expr)
	defer free(cexpr)
	return int(C.aug_defvar(e.aug, cname, cexpr))
}

// DefNode implements ports.Engine.
func (e *Engine) DefNode(name, expr string, value *string) (bool, int) {
	if e.aug == nil {
		return false, -1
	}
	cname := C.CString(name)
	defer free(cname)
	cexpr := C.CString(expr)
	defer free(cexpr)
	cval := cvalue(value)
	defer free(cval)

	var created C.int
	rc := int(C.aug_defnode(e.aug, cname, cexpr, cval, &created))
	return created == 1, rc
}

// Save implements ports.Engine.
func (e *Engine) Save() int {
	if e.aug == nil {
		return -1
	}
	return int(C.aug_save(e.aug))
}

// Load implements ports.Engine.
func (e *Engine) Load() int {
	if e.aug == nil {
		return -1
	}
	return int(C.aug_load(e.aug))
}

// Span implements ports.Engine.
func (e *Engine) Span(path string) (ports.Span, int) {
	if e.aug == nil {
		return ports.Span{}, -1
	}
	cpath := C.CString(path)
	defer free(cpath)

	var (
		filename             *C.char
		labelStart, labelEnd C.uint
		valueStart, valueEnd C.uint
		spanStart, spanEnd   C.uint
	)
	rc := int(C.aug_span(e.aug, cpath, &filename,
		&labelStart, &labelEnd, &valueStart, &valueEnd, &spanStart, &spanEnd))
	if rc < 0 {
		return ports.Span{}, rc
	}
	sp := ports.Span{
		LabelStart: int(labelStart),
		LabelEnd:   int(labelEnd),
		ValueStart: int(valueStart),
		ValueEnd:   int(valueEnd),
		SpanStart:  int(spanStart),
		SpanEnd:    int(spanEnd),
	}
	if filename != nil {
		sp.Filename = C.GoString(filename)
		C.free(unsafe.Pointer(filename))
	}
	return sp, rc
}

// Insert implements ports.Engine.
func (e *Engine) Insert(path, label string, before bool) int {
	if e.aug == nil {
		return -1
	}
	cpath := C.CString(path)
	defer free(cpath)
	clabel := C.CString(label)
	defer free(clabel)
	var b C.int
	if before {
		b = 1
	}
	return int(C.aug_insert(e.aug, cpath, clabel, b))
}

// Rename implements ports.Engine.
func (e *Engine) Rename(path, label string) int {
	if e.aug == nil {
		return -1
	}
	cpath := C.CString(path)
	defer free(cpath)
	clabel := C.CString(label)
	defer free(clabel)
	return int(C.aug_rename(e.aug, cpath, clabel))
}

// TextStore implements ports.Engine.
func (e *Engine) TextStore(lens, node, path string) int {
	if e.aug == nil {
		return -1
	}
	clens := C.CString(lens)
	defer free(clens)
	cnode := C.CString(node)
	defer free(cnode)
	cpath := C.CString(path)
	defer free(cpath)
	return int(C.aug_text_store(e.aug, clens, cnode, cpath))
}

// TextRetrieve implements ports.Engine.
func (e *Engine) TextRetrieve(lens, nodeIn, path, nodeOut string) int {
	if e.aug == nil {
		return -1
	}
	clens := C.CString(lens)
	defer free(clens)
	cin := C.CString(nodeIn)
	defer free(cin)
	cpath := C.CString(path)
	defer free(cpath)
	cout := C.CString(nodeOut)
	defer free(cout)
	return int(C.aug_text_retrieve(e.aug, clens, cin, cpath, cout))
}

// Srun implements ports.Engine. The command output is captured in a memory
// stream.
func (e *Engine) Srun(text string) (string, int) {
	if e.aug == nil {
		return "", -1
	}
	ctext := C.CString(text)
	defer free(ctext)

	var (
		buf *C.char
		n   C.size_t
	)
	rc := int(C.srun_capture(e.aug, ctext, &buf, &n))
	if buf == nil {
		return "", rc
	}
	defer C.free(unsafe.Pointer(buf))
	return C.GoStringN(buf, C.int(n)), rc
}

// Error implements ports.Engine.
func (e *Engine) Error() ports.ErrorInfo {
	if e.aug == nil {
		return ports.ErrorInfo{Code: ports.CodeInternal, Message: "engine is closed"}
	}
	info := ports.ErrorInfo{Code: ports.ErrorCode(C.aug_error(e.aug))}
	if info.Code == ports.CodeNoError {
		return info
	}
	if p := gostring(C.aug_error_message(e.aug)); p != nil {
		info.Message = *p
	}
	if p := gostring(C.aug_error_details(e.aug)); p != nil {
		info.Details = *p
	}
	if p := gostring(C.aug_error_minor_message(e.aug)); p != nil {
		info.Minor = *p
	}
	return info
}
