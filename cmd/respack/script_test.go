// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"os"
	"testing"

	"github.com/rogpeppe/go-internal/testscript"
)

func TestMain(m *testing.M) {
	testscript.Main(m, map[string]func(){
		"respack": Execute,
	})
}

// TestScripts runs the end-to-end CLI scripts in testdata/script.
func TestScripts(t *testing.T) {
	testscript.Run(t, testscript.Params{
		Dir: "testdata/script",
		Setup: func(env *testscript.Env) error {
			env.Setenv("XDG_CONFIG_HOME", env.WorkDir+string(os.PathSeparator)+"config")
			env.Setenv("XDG_DATA_HOME", env.WorkDir+string(os.PathSeparator)+"data")
			env.Setenv("NO_COLOR", "1")
			return nil
		},
		ContinueOnError: true,
	})
}
