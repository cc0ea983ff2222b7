// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package turandot

import (
	"fmt"
	"strings"
	"sync"

	"golang.org/x/exp/maps"
)

// This file provides a registry for Executor factories in Turandot.
//
// The registry is intended to be used by all client applications that would
// like to use executor services. For an implementation to be available
// it needs to be registered. Typically, this registration is part of the
// init code of the package providing an implementation. Thus, by including
// the implementation package, executor implementations become available
// in this central registry.

// GetExecutor performs a lookup for the given name (case-insensitive) and
// creates an executor instance using the given interpreter and compiler.
// The result is nil if no factory was registered under the given name.
func GetExecutor(name string, interpreter Interpreter, compiler Compiler) Executor {
	factory := GetExecutorFactory(name)
	if factory == nil {
		return nil
	}
	return factory(interpreter, compiler)
}

// GetExecutorFactory performs a lookup for the given name (case-insensitive)
// in the registry. The result is nil if no factory was registered under the
// given name.
func GetExecutorFactory(name string) ExecutorFactory {
	executorRegistryLock.Lock()
	defer executorRegistryLock.Unlock()
	return executorRegistry[strings.ToLower(name)]
}

// GetAllRegisteredExecutorFactories obtains all registered implementations.
func GetAllRegisteredExecutorFactories() map[string]ExecutorFactory {
	executorRegistryLock.Lock()
	defer executorRegistryLock.Unlock()
	return maps.Clone(executorRegistry)
}

// RegisterExecutorFactory can be used to register a new Executor implementation
// to be exported for general use in the binary. The name is not case-sensitive,
// and a panic is triggered if an implementation was bound to the same name
// before, or the implementation is nil. This function is mainly intended to be
// used by package initialization code.
func RegisterExecutorFactory(name string, impl ExecutorFactory) {
	key := strings.ToLower(name)
	if impl == nil {
		panic(fmt.Sprintf("invalid initialization: cannot register nil-executor using `%s`", key))
	}
	executorRegistryLock.Lock()
	defer executorRegistryLock.Unlock()
	if _, found := executorRegistry[key]; found {
		panic(fmt.Sprintf("invalid initialization: multiple Executors registered for `%s`", key))
	}
	executorRegistry[key] = impl
}

// ExecutorFactory is the type of a function that creates a new Executor
// using a given interpreter and the compiler producing its programs.
type ExecutorFactory func(Interpreter, Compiler) Executor

// executorRegistry is a global registry for Executor instances of
// different implementations and configurations.
var executorRegistry = map[string]ExecutorFactory{}

// executorRegistryLock to protect access to the registry.
var executorRegistryLock sync.Mutex
