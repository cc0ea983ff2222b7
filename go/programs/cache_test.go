// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package programs

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/Fantom-foundation/Turandot/go/turandot"
	"go.uber.org/mock/gomock"
	"golang.org/x/sync/errgroup"
)

func TestCache_RepeatedRequestsCompileOnlyOnce(t *testing.T) {
	ctrl := gomock.NewController(t)
	compiler := turandot.NewMockCompiler(ctrl)
	reader := turandot.NewMockStateReader(ctrl)
	program := turandot.NewMockCompiledProgram(ctrl)

	class := turandot.ClassHash(turandot.NewFelt(1))
	definition := turandot.ClassDefinition("code")
	reader.EXPECT().Class(class).Return(definition, nil)
	compiler.EXPECT().Compile(definition).Return(program, nil)

	cache := NewCache(compiler)
	for i := 0; i < 3; i++ {
		got, err := cache.GetOrCompile(class, reader)
		if err != nil {
			t.Fatalf("failed to get program: %v", err)
		}
		if got != program {
			t.Errorf("unexpected program, wanted %v, got %v", program, got)
		}
	}
	if want, got := 1, cache.Size(); want != got {
		t.Errorf("unexpected cache size, wanted %d, got %d", want, got)
	}
}

func TestCache_DifferentClassesAreCompiledIndependently(t *testing.T) {
	ctrl := gomock.NewController(t)
	compiler := turandot.NewMockCompiler(ctrl)
	reader := turandot.NewMockStateReader(ctrl)

	first := turandot.ClassHash(turandot.NewFelt(1))
	second := turandot.ClassHash(turandot.NewFelt(2))
	firstProgram := turandot.NewMockCompiledProgram(ctrl)
	secondProgram := turandot.NewMockCompiledProgram(ctrl)

	reader.EXPECT().Class(first).Return(turandot.ClassDefinition("a"), nil)
	reader.EXPECT().Class(second).Return(turandot.ClassDefinition("b"), nil)
	compiler.EXPECT().Compile(turandot.ClassDefinition("a")).Return(firstProgram, nil)
	compiler.EXPECT().Compile(turandot.ClassDefinition("b")).Return(secondProgram, nil)

	cache := NewCache(compiler)
	if got, _ := cache.GetOrCompile(first, reader); got != firstProgram {
		t.Errorf("unexpected program for first class")
	}
	if got, _ := cache.GetOrCompile(second, reader); got != secondProgram {
		t.Errorf("unexpected program for second class")
	}
	if want, got := 2, cache.Size(); want != got {
		t.Errorf("unexpected cache size, wanted %d, got %d", want, got)
	}
}

func TestCache_CompilationFailuresAreCached(t *testing.T) {
	ctrl := gomock.NewController(t)
	compiler := turandot.NewMockCompiler(ctrl)
	reader := turandot.NewMockStateReader(ctrl)

	class := turandot.ClassHash(turandot.NewFelt(1))
	definition := turandot.ClassDefinition("broken")
	reader.EXPECT().Class(class).Return(definition, nil)
	compiler.EXPECT().Compile(definition).Return(nil, fmt.Errorf("unsupported opcode"))

	cache := NewCache(compiler)
	for i := 0; i < 3; i++ {
		_, err := cache.GetOrCompile(class, reader)
		if !errors.Is(err, turandot.ErrCompilationFailed) {
			t.Fatalf("expected a compilation failure, got %v", err)
		}
	}
}

func TestCache_FetchFailuresAreRetried(t *testing.T) {
	ctrl := gomock.NewController(t)
	compiler := turandot.NewMockCompiler(ctrl)
	reader := turandot.NewMockStateReader(ctrl)
	program := turandot.NewMockCompiledProgram(ctrl)

	class := turandot.ClassHash(turandot.NewFelt(1))
	definition := turandot.ClassDefinition("code")
	issue := fmt.Errorf("state source unavailable")
	gomock.InOrder(
		reader.EXPECT().Class(class).Return(nil, issue),
		reader.EXPECT().Class(class).Return(definition, nil),
	)
	compiler.EXPECT().Compile(definition).Return(program, nil)

	cache := NewCache(compiler)

	if _, err := cache.GetOrCompile(class, reader); !errors.Is(err, issue) {
		t.Fatalf("expected the fetch failure to be reported, got %v", err)
	}
	if want, got := 0, cache.Size(); want != got {
		t.Fatalf("fetch failures must not stay in the cache, size is %d", got)
	}

	got, err := cache.GetOrCompile(class, reader)
	if err != nil {
		t.Fatalf("failed to get program after retry: %v", err)
	}
	if got != program {
		t.Errorf("unexpected program after retry, wanted %v, got %v", program, got)
	}
}

func TestCache_MissingClassesAreReportedAndRetried(t *testing.T) {
	ctrl := gomock.NewController(t)
	compiler := turandot.NewMockCompiler(ctrl)
	reader := turandot.NewMockStateReader(ctrl)

	class := turandot.ClassHash(turandot.NewFelt(1))
	reader.EXPECT().Class(class).Return(nil, fmt.Errorf("%w: %v", turandot.ErrClassNotFound, class)).Times(2)

	cache := NewCache(compiler)
	for i := 0; i < 2; i++ {
		if _, err := cache.GetOrCompile(class, reader); !errors.Is(err, turandot.ErrClassNotFound) {
			t.Fatalf("expected a class-not-found error, got %v", err)
		}
	}
}

func TestCache_ConcurrentRequestsShareOneCompilation(t *testing.T) {
	ctrl := gomock.NewController(t)
	compiler := turandot.NewMockCompiler(ctrl)
	reader := turandot.NewMockStateReader(ctrl)
	program := turandot.NewMockCompiledProgram(ctrl)

	class := turandot.ClassHash(turandot.NewFelt(1))
	definition := turandot.ClassDefinition("code")

	const numWorkers = 32
	release := make(chan struct{})
	var fetches, compilations atomic.Int32
	reader.EXPECT().Class(class).DoAndReturn(func(turandot.ClassHash) (turandot.ClassDefinition, error) {
		fetches.Add(1)
		<-release // hold the first resolver until all workers are launched
		return definition, nil
	}).AnyTimes()
	compiler.EXPECT().Compile(definition).DoAndReturn(func(turandot.ClassDefinition) (turandot.CompiledProgram, error) {
		compilations.Add(1)
		return program, nil
	}).AnyTimes()

	cache := NewCache(compiler)

	var started sync.WaitGroup
	started.Add(numWorkers)
	group := errgroup.Group{}
	for i := 0; i < numWorkers; i++ {
		group.Go(func() error {
			started.Done()
			got, err := cache.GetOrCompile(class, reader)
			if err != nil {
				return err
			}
			if got != program {
				return fmt.Errorf("unexpected program, wanted %v, got %v", program, got)
			}
			return nil
		})
	}
	started.Wait()
	close(release)
	if err := group.Wait(); err != nil {
		t.Fatalf("concurrent access failed: %v", err)
	}

	if want, got := int32(1), fetches.Load(); want != got {
		t.Errorf("unexpected number of class fetches, wanted %d, got %d", want, got)
	}
	if want, got := int32(1), compilations.Load(); want != got {
		t.Errorf("unexpected number of compilations, wanted %d, got %d", want, got)
	}
}

func TestCache_ConcurrentRequestsForDifferentClassesDoNotBlockEachOther(t *testing.T) {
	ctrl := gomock.NewController(t)
	compiler := turandot.NewMockCompiler(ctrl)
	reader := turandot.NewMockStateReader(ctrl)
	program := turandot.NewMockCompiledProgram(ctrl)

	slow := turandot.ClassHash(turandot.NewFelt(1))
	fast := turandot.ClassHash(turandot.NewFelt(2))

	release := make(chan struct{})
	slowFetching := make(chan struct{})
	reader.EXPECT().Class(slow).DoAndReturn(func(turandot.ClassHash) (turandot.ClassDefinition, error) {
		close(slowFetching)
		<-release
		return turandot.ClassDefinition("slow"), nil
	})
	reader.EXPECT().Class(fast).Return(turandot.ClassDefinition("fast"), nil)
	compiler.EXPECT().Compile(gomock.Any()).Return(program, nil).Times(2)

	cache := NewCache(compiler)

	group := errgroup.Group{}
	group.Go(func() error {
		_, err := cache.GetOrCompile(slow, reader)
		return err
	})

	// The fast class must resolve while the slow one is still held up in its
	// definition fetch.
	<-slowFetching
	if _, err := cache.GetOrCompile(fast, reader); err != nil {
		t.Fatalf("failed to get program for independent class: %v", err)
	}

	close(release)
	if err := group.Wait(); err != nil {
		t.Fatalf("failed to get program for slow class: %v", err)
	}
}

func BenchmarkCache_WarmLookups(b *testing.B) {
	ctrl := gomock.NewController(b)
	compiler := turandot.NewMockCompiler(ctrl)
	reader := turandot.NewMockStateReader(ctrl)
	program := turandot.NewMockCompiledProgram(ctrl)

	class := turandot.ClassHash(turandot.NewFelt(1))
	reader.EXPECT().Class(class).Return(turandot.ClassDefinition("code"), nil)
	compiler.EXPECT().Compile(gomock.Any()).Return(program, nil)

	cache := NewCache(compiler)
	if _, err := cache.GetOrCompile(class, reader); err != nil {
		b.Fatalf("failed to prime the cache: %v", err)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := cache.GetOrCompile(class, reader); err != nil {
			b.Fatalf("failed to get program: %v", err)
		}
	}
}

func BenchmarkCache_ColdLookups(b *testing.B) {
	ctrl := gomock.NewController(b)
	compiler := turandot.NewMockCompiler(ctrl)
	reader := turandot.NewMockStateReader(ctrl)
	program := turandot.NewMockCompiledProgram(ctrl)

	reader.EXPECT().Class(gomock.Any()).Return(turandot.ClassDefinition("code"), nil).AnyTimes()
	compiler.EXPECT().Compile(gomock.Any()).Return(program, nil).AnyTimes()

	cache := NewCache(compiler)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		class := turandot.ClassHash(turandot.NewFelt(uint64(i) + 1))
		if _, err := cache.GetOrCompile(class, reader); err != nil {
			b.Fatalf("failed to get program: %v", err)
		}
	}
}
