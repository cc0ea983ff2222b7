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
	"errors"
	"fmt"

	"github.com/Fantom-foundation/Turandot/go/turandot"
)

// runner executes one script for one call frame. All effects flow through
// the syscall context; the runner only keeps the variable bindings and the
// locally accumulated result fields.
type runner struct {
	context  turandot.SyscallContext
	calldata []turandot.Felt
	vars     map[string][]turandot.Felt
	result   turandot.Result
}

// errScriptDone signals the termination of a script through a return or
// fail operation.
var errScriptDone = errors.New("script done")

func (r *runner) run(script []operation) turandot.Result {
	r.result.Success = true
	for i := range script {
		err := r.step(&script[i])
		if errors.Is(err, errScriptDone) {
			break
		}
		if err != nil {
			r.result.Success = false
			r.result.Retdata = reasonFelts(err)
			break
		}
	}
	return r.result
}

func (r *runner) step(op *operation) error {
	switch op.Op {
	case opUseSteps:
		return r.context.UseSteps(op.Steps)
	case opUseBuiltin:
		r.result.Builtins[op.builtin] += op.Count
		return nil
	case opMemoryHoles:
		r.result.MemoryHoles += op.Count
		return nil
	case opStorageRead:
		key, err := r.resolve(*op.Key)
		if err != nil {
			return err
		}
		value, err := r.context.StorageRead(turandot.StorageKey(key))
		if err != nil {
			return err
		}
		r.bind(op.Into, []turandot.Felt{value})
		return nil
	case opStorageWrite:
		key, err := r.resolve(*op.Key)
		if err != nil {
			return err
		}
		value, err := r.resolve(*op.Value)
		if err != nil {
			return err
		}
		return r.context.StorageWrite(turandot.StorageKey(key), value)
	case opEmitEvent:
		keys, err := r.resolveAll(op.Keys)
		if err != nil {
			return err
		}
		data, err := r.resolveAll(op.Data)
		if err != nil {
			return err
		}
		return r.context.EmitEvent(keys, data)
	case opSendMessage:
		to, err := r.resolve(*op.To)
		if err != nil {
			return err
		}
		payload, err := r.resolveAll(op.Payload)
		if err != nil {
			return err
		}
		return r.context.SendMessageToL1(to, payload)
	case opCallContract:
		contract, err := r.resolve(*op.Contract)
		if err != nil {
			return err
		}
		calldata, err := r.resolveAll(op.Calldata)
		if err != nil {
			return err
		}
		retdata, err := r.context.CallContract(turandot.Address(contract), op.selector, calldata)
		if err != nil {
			return err
		}
		r.bind(op.Into, retdata)
		return nil
	case opLibraryCall:
		class, err := r.resolve(*op.Class)
		if err != nil {
			return err
		}
		calldata, err := r.resolveAll(op.Calldata)
		if err != nil {
			return err
		}
		retdata, err := r.context.LibraryCall(turandot.ClassHash(class), op.selector, calldata)
		if err != nil {
			return err
		}
		r.bind(op.Into, retdata)
		return nil
	case opDeploy:
		class, err := r.resolve(*op.Class)
		if err != nil {
			return err
		}
		salt, err := r.resolve(*op.Salt)
		if err != nil {
			return err
		}
		calldata, err := r.resolveAll(op.Calldata)
		if err != nil {
			return err
		}
		address, retdata, err := r.context.Deploy(turandot.ClassHash(class), salt, calldata)
		if err != nil {
			return err
		}
		r.bind(op.Into, append([]turandot.Felt{turandot.Felt(address)}, retdata...))
		return nil
	case opReplaceClass:
		class, err := r.resolve(*op.Class)
		if err != nil {
			return err
		}
		return r.context.ReplaceClass(turandot.ClassHash(class))
	case opExecutionInfo:
		info, err := r.context.GetExecutionInfo()
		if err != nil {
			return err
		}
		r.bind(op.Into, []turandot.Felt{infoFields[op.Field](info)})
		return nil
	case opBlockHash:
		hash, err := r.context.GetBlockHash(op.Number)
		if err != nil {
			return err
		}
		r.bind(op.Into, []turandot.Felt{turandot.Felt(hash)})
		return nil
	case opKeccak:
		data, err := r.payload(op.Data)
		if err != nil {
			return err
		}
		digest, err := r.context.Keccak(data)
		if err != nil {
			return err
		}
		r.bind(op.Into, []turandot.Felt{starkFelt(digest)})
		return nil
	case opStarkKeccak:
		data, err := r.payload(op.Data)
		if err != nil {
			return err
		}
		r.bind(op.Into, []turandot.Felt{starkFelt(keccak256(data))})
		return nil
	case opEcAdd:
		p, err := r.resolvePoint(op.P)
		if err != nil {
			return err
		}
		q, err := r.resolvePoint(op.Q)
		if err != nil {
			return err
		}
		sum, err := r.context.EcAdd(p, q)
		if err != nil {
			return err
		}
		r.bind(op.Into, []turandot.Felt{sum.X, sum.Y})
		return nil
	case opEcMul:
		p, err := r.resolvePoint(op.P)
		if err != nil {
			return err
		}
		scalar, err := r.resolve(*op.Scalar)
		if err != nil {
			return err
		}
		product, err := r.context.EcMul(p, scalar)
		if err != nil {
			return err
		}
		r.bind(op.Into, []turandot.Felt{product.X, product.Y})
		return nil
	case opFail:
		reasons, err := r.resolveAll(op.Values)
		if err != nil {
			return err
		}
		r.result.Success = false
		r.result.Retdata = reasons
		return errScriptDone
	case opReturn:
		if op.From != "" {
			values, found := r.vars[op.From]
			if !found {
				return fmt.Errorf("unknown variable %q", op.From)
			}
			r.result.Retdata = values
			return errScriptDone
		}
		values, err := r.resolveAll(op.Values)
		if err != nil {
			return err
		}
		r.result.Retdata = values
		return errScriptDone
	}
	return fmt.Errorf("unknown operation %q", op.Op)
}

// resolve produces the field element an operand refers to.
func (r *runner) resolve(a Arg) (turandot.Felt, error) {
	switch a.kind {
	case argConst:
		return a.constant, nil
	case argCalldata:
		if a.index < 0 || a.index >= len(r.calldata) {
			return turandot.Felt{}, fmt.Errorf("calldata index %d out of range", a.index)
		}
		return r.calldata[a.index], nil
	case argVar:
		values, found := r.vars[a.name]
		if !found {
			return turandot.Felt{}, fmt.Errorf("unknown variable %q", a.name)
		}
		if a.index < 0 || a.index >= len(values) {
			return turandot.Felt{}, fmt.Errorf("variable %q has no element %d", a.name, a.index)
		}
		return values[a.index], nil
	case argText:
		return turandot.Felt{}, fmt.Errorf("text operand outside a hash payload")
	}
	return turandot.Felt{}, fmt.Errorf("invalid operand kind %d", a.kind)
}

func (r *runner) resolveAll(args []Arg) ([]turandot.Felt, error) {
	if len(args) == 0 {
		return nil, nil
	}
	values := make([]turandot.Felt, len(args))
	for i := range args {
		value, err := r.resolve(args[i])
		if err != nil {
			return nil, err
		}
		values[i] = value
	}
	return values, nil
}

func (r *runner) resolvePoint(p *Point) (turandot.CurvePoint, error) {
	x, err := r.resolve(p.X)
	if err != nil {
		return turandot.CurvePoint{}, err
	}
	y, err := r.resolve(p.Y)
	if err != nil {
		return turandot.CurvePoint{}, err
	}
	return turandot.CurvePoint{X: x, Y: y}, nil
}

// payload assembles the byte string a hash operation processes. Field
// element parts contribute their 32-byte big-endian form, text parts their
// raw bytes.
func (r *runner) payload(parts []Arg) ([]byte, error) {
	var data []byte
	for _, part := range parts {
		if part.kind == argText {
			data = append(data, part.text...)
			continue
		}
		value, err := r.resolve(part)
		if err != nil {
			return nil, err
		}
		bytes := value.Bytes32be()
		data = append(data, bytes[:]...)
	}
	return data, nil
}

// bind stores values under the given variable name. An empty name discards
// the values.
func (r *runner) bind(name string, values []turandot.Felt) {
	if name == "" {
		return
	}
	r.vars[name] = values
}

// reasonFelts encodes the message of an abort cause as a sequence of short
// string field elements of at most 31 characters each.
func reasonFelts(err error) []turandot.Felt {
	text := err.Error()
	var reasons []turandot.Felt
	for len(text) > 0 {
		chunk := len(text)
		if chunk > 31 {
			chunk = 31
		}
		reasons = append(reasons, turandot.NewFeltFromBytes([]byte(text[:chunk])...))
		text = text[chunk:]
	}
	return reasons
}
