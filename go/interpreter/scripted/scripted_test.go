// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package scripted

import (
	"fmt"
	"strings"
	"testing"

	"github.com/Fantom-foundation/Turandot/go/turandot"
	"go.uber.org/mock/gomock"
	"golang.org/x/sync/errgroup"
)

func TestScripted_IsRegistered(t *testing.T) {
	interpreter, err := turandot.NewInterpreter("scripted")
	if err != nil {
		t.Fatalf("failed to create registered interpreter: %v", err)
	}
	if interpreter == nil {
		t.Fatalf("registry returned a nil interpreter")
	}
}

func TestRun_ForeignProgramsAreReported(t *testing.T) {
	ctrl := gomock.NewController(t)
	program := turandot.NewMockCompiledProgram(ctrl)

	_, err := NewInterpreter().Run(turandot.Parameters{Program: program})
	if err == nil || !strings.Contains(err.Error(), "foreign program") {
		t.Errorf("expected a foreign program issue, got %v", err)
	}
}

func TestRun_UnknownEntryPointsAreReported(t *testing.T) {
	class := NewClassBuilder()
	class.External("ping").Return(Uint(1))
	program, err := NewCompiler().Compile(class.Build())
	if err != nil {
		t.Fatalf("failed to compile class definition: %v", err)
	}

	_, err = NewInterpreter().Run(turandot.Parameters{
		Program:        program,
		EntryPointType: turandot.ExternalEntryPoint,
		Selector:       turandot.SelectorFromName("ghost"),
	})
	if err == nil || !strings.Contains(err.Error(), "entry point") {
		t.Errorf("expected an entry point issue, got %v", err)
	}
}

func TestRun_SupportsConcurrentExecutions(t *testing.T) {
	class := NewClassBuilder()
	class.External("echo").Return(Calldata(0))
	program, err := NewCompiler().Compile(class.Build())
	if err != nil {
		t.Fatalf("failed to compile class definition: %v", err)
	}
	interpreter := NewInterpreter()

	var group errgroup.Group
	for i := 0; i < 8; i++ {
		value := turandot.NewFelt(uint64(i))
		group.Go(func() error {
			for j := 0; j < 100; j++ {
				result, err := interpreter.Run(turandot.Parameters{
					Program:        program,
					EntryPointType: turandot.ExternalEntryPoint,
					Selector:       turandot.SelectorFromName("echo"),
					Calldata:       []turandot.Felt{value},
				})
				if err != nil {
					return err
				}
				if len(result.Retdata) != 1 || result.Retdata[0] != value {
					return fmt.Errorf("unexpected retdata, wanted [%v], got %v", value, result.Retdata)
				}
			}
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		t.Fatalf("concurrent execution failed: %v", err)
	}
}
