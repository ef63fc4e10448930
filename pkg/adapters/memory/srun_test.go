package memory

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/augeas/pkg/ports"
)

func TestSrun(t *testing.T) {
	e, _ := newEngine(t, ports.FlagNone)

	out, rc := e.Srun(`
# comments and blank lines are skipped
set /files/etc/hosts/3/ipaddr 10.0.0.3
set /files/etc/hosts/3/canonical "new host"
get /files/etc/hosts/3/canonical
get /files/etc/hosts/9/canonical
clear /files/etc/hosts/3/alias
get /files/etc/hosts/3/alias
match /files/etc/hosts/*/ipaddr 10.0.0.3
rm /files/etc/hosts/3/alias
`)
	require.Equal(t, 8, rc, "%+v", e.Error())
	assert.Equal(t, ""+
		"/files/etc/hosts/3/canonical = new host\n"+
		"/files/etc/hosts/9/canonical (o)\n"+
		"/files/etc/hosts/3/alias (none)\n"+
		"/files/etc/hosts/3/ipaddr = 10.0.0.3\n"+
		"rm : /files/etc/hosts/3/alias 1\n", out)
}

func TestSrun_Commands(t *testing.T) {
	e, _ := newEngine(t, ports.FlagNone)

	out, rc := e.Srun("ins alias before /files/etc/hosts/2/canonical\nlabel /files/etc/hosts/2/*[2]\n")
	require.Equal(t, 2, rc, "%+v", e.Error())
	assert.Equal(t, "/files/etc/hosts/2/*[2] = alias\n", out)

	out, rc = e.Srun("rename /files/etc/hosts/2/alias other\nmatch /files/nothing\n")
	require.Equal(t, 2, rc)
	assert.Equal(t, "rename : /files/etc/hosts/2/alias to other 1\n  (no matches)\n", out)

	_, rc = e.Srun("defvar h /files/etc/hosts/1\ndefnode n $h/alias[last()+1] extra\nmv /files/etc/hosts/2 /files/etc/hosts/5\ntouch /files/etc/hosts/5\n")
	require.Equal(t, 4, rc, "%+v", e.Error())
	assert.Equal(t, "extra", get(t, e, "/files/etc/hosts/1/alias[2]"))
	assert.Equal(t, 1, e.Exists("/files/etc/hosts/5"))

	out, rc = e.Srun("print /files/etc/hosts/5")
	require.Equal(t, 1, rc)
	assert.Equal(t, "/files/etc/hosts/5\n/files/etc/hosts/5/ipaddr = \"192.168.0.1\"\n/files/etc/hosts/5/other\n/files/etc/hosts/5/canonical = \"gateway\"\n", out)
}

func TestSrun_Errors(t *testing.T) {
	tests := []struct {
		name string
		text string
		code ports.ErrorCode
	}{
		{"unknown command", "frob /files", ports.CodeCommandRun},
		{"too few arguments", "get", ports.CodeCommandRun},
		{"too many arguments", "rm /a /b", ports.CodeCommandRun},
		{"bad insert position", "ins x around /files/etc/hosts/1", ports.CodeCommandRun},
		{"unterminated quote", "set /files/x 'open", ports.CodeCommandRun},
		{"failing command keeps its code", "get /files/etc/hosts/*", ports.CodeMultipleMatches},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, _ := newEngine(t, ports.FlagNone)
			_, rc := e.Srun(tt.text)
			assert.Equal(t, -1, rc)
			assert.Equal(t, tt.code, e.Error().Code)
		})
	}
}

func TestSrun_StopsAtFirstFailure(t *testing.T) {
	e, _ := newEngine(t, ports.FlagNone)
	_, rc := e.Srun("set /files/a 1\nbogus\nset /files/b 2\n")
	assert.Equal(t, -1, rc)
	assert.Equal(t, 1, e.Exists("/files/a"))
	assert.Equal(t, 0, e.Exists("/files/b"))
}

func TestSrun_Quit(t *testing.T) {
	e, _ := newEngine(t, ports.FlagNone)
	out, rc := e.Srun("get /files/etc/hosts/2/canonical\nquit\nget /files/etc/hosts/1/canonical\n")
	assert.Equal(t, -2, rc)
	assert.Equal(t, ports.CodeNoError, e.Error().Code)
	assert.Equal(t, "/files/etc/hosts/2/canonical = gateway\n", out)
}

func TestTokenize(t *testing.T) {
	words, err := tokenize(`set /a\ b "x \"y\"" 'z\'`)
	require.NoError(t, err)
	assert.Equal(t, []string{"set", "/a b", `x "y"`, `z\`}, words)
}
