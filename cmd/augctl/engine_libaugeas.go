//go:build libaugeas

package main

import _ "github.com/aretw0/augeas/pkg/adapters/libaugeas"
