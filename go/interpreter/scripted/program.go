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
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Fantom-foundation/Turandot/go/turandot"
)

// classDocument is the serialized form of a scripted class. Each entry point
// space maps entry point names to the list of operations run for a call. Map
// keys are either plain entry point names, resolved through the selector
// derivation, or 0x-prefixed hexadecimal selectors.
type classDocument struct {
	External    map[string][]operation `json:"external,omitempty"`
	Constructor *[]operation           `json:"constructor,omitempty"`
	L1Handlers  map[string][]operation `json:"l1_handler,omitempty"`
}

// The operation names understood by the compiler.
const (
	opUseSteps      = "use_steps"
	opUseBuiltin    = "use_builtin"
	opMemoryHoles   = "memory_holes"
	opStorageRead   = "storage_read"
	opStorageWrite  = "storage_write"
	opEmitEvent     = "emit_event"
	opSendMessage   = "send_message"
	opCallContract  = "call_contract"
	opLibraryCall   = "library_call"
	opDeploy        = "deploy"
	opReplaceClass  = "replace_class"
	opExecutionInfo = "get_execution_info"
	opBlockHash     = "get_block_hash"
	opKeccak        = "keccak"
	opStarkKeccak   = "stark_keccak"
	opEcAdd         = "ec_add"
	opEcMul         = "ec_mul"
	opFail          = "fail"
	opReturn        = "return"
)

// operation is a single step of a script. The set of meaningful fields
// depends on the operation name; the compiler validates the combination and
// resolves names into the unexported fields before a script is accepted.
type operation struct {
	Op         string         `json:"op"`
	Steps      turandot.Steps `json:"steps,omitempty"`
	Builtin    string         `json:"builtin,omitempty"`
	Count      uint64         `json:"count,omitempty"`
	Number     int64          `json:"number,omitempty"`
	Field      string         `json:"field,omitempty"`
	EntryPoint string         `json:"entry_point,omitempty"`
	Into       string         `json:"into,omitempty"`
	From       string         `json:"from,omitempty"`
	Key        *Arg           `json:"key,omitempty"`
	Value      *Arg           `json:"value,omitempty"`
	To         *Arg           `json:"to,omitempty"`
	Contract   *Arg           `json:"contract,omitempty"`
	Class      *Arg           `json:"class,omitempty"`
	Salt       *Arg           `json:"salt,omitempty"`
	Scalar     *Arg           `json:"scalar,omitempty"`
	P          *Point         `json:"p,omitempty"`
	Q          *Point         `json:"q,omitempty"`
	Keys       []Arg          `json:"keys,omitempty"`
	Data       []Arg          `json:"data,omitempty"`
	Payload    []Arg          `json:"payload,omitempty"`
	Calldata   []Arg          `json:"calldata,omitempty"`
	Values     []Arg          `json:"values,omitempty"`

	// Resolved by the compiler, not part of the serialized form.
	selector turandot.Selector
	builtin  turandot.Builtin
}

// Arg is one operand of a script operation. It is either a constant field
// element, a reference to a calldata element, a reference to an element of a
// variable bound by an earlier operation, or a raw text fragment. Text
// fragments are only valid in hash payloads.
//
// In the serialized form constants are JSON numbers or strings, where a
// 0x-prefixed string is parsed as a hexadecimal field element and any other
// string as a short string. References are objects of the shape
// {"calldata": i}, {"var": "name"}, {"var": "name", "index": i}, or
// {"text": "fragment"}.
type Arg struct {
	kind     argKind
	constant turandot.Felt
	index    int
	name     string
	text     string
}

type argKind int

const (
	argConst argKind = iota
	argCalldata
	argVar
	argText
)

func (a *Arg) UnmarshalJSON(data []byte) error {
	var literal string
	if err := json.Unmarshal(data, &literal); err == nil {
		value, err := parseFeltLiteral(literal)
		if err != nil {
			return err
		}
		*a = Arg{kind: argConst, constant: value}
		return nil
	}
	var number uint64
	if err := json.Unmarshal(data, &number); err == nil {
		*a = Arg{kind: argConst, constant: turandot.NewFelt(number)}
		return nil
	}
	var reference struct {
		Calldata *int    `json:"calldata"`
		Var      string  `json:"var"`
		Index    int     `json:"index"`
		Text     *string `json:"text"`
	}
	if err := json.Unmarshal(data, &reference); err != nil {
		return fmt.Errorf("invalid operand: %s", data)
	}
	switch {
	case reference.Calldata != nil:
		*a = Arg{kind: argCalldata, index: *reference.Calldata}
	case reference.Var != "":
		*a = Arg{kind: argVar, name: reference.Var, index: reference.Index}
	case reference.Text != nil:
		*a = Arg{kind: argText, text: *reference.Text}
	default:
		return fmt.Errorf("invalid operand: %s", data)
	}
	return nil
}

func (a Arg) MarshalJSON() ([]byte, error) {
	switch a.kind {
	case argConst:
		return json.Marshal(a.constant.String())
	case argCalldata:
		return json.Marshal(map[string]int{"calldata": a.index})
	case argVar:
		if a.index == 0 {
			return json.Marshal(map[string]string{"var": a.name})
		}
		return json.Marshal(map[string]any{"var": a.name, "index": a.index})
	case argText:
		return json.Marshal(map[string]string{"text": a.text})
	}
	return nil, fmt.Errorf("invalid operand kind %d", a.kind)
}

// Point is a pair of operands forming an elliptic curve point.
type Point struct {
	X Arg `json:"x"`
	Y Arg `json:"y"`
}

// parseFeltLiteral converts a string literal of the script format into a
// field element. 0x-prefixed literals are hexadecimal, all others are short
// strings of at most 31 characters.
func parseFeltLiteral(literal string) (turandot.Felt, error) {
	if strings.HasPrefix(literal, "0x") {
		return turandot.ParseFelt(literal)
	}
	return turandot.FeltFromShortString(literal)
}

// resolveSelector converts an entry point key of a class document into a
// selector. 0x-prefixed keys are explicit selectors, all others are entry
// point names.
func resolveSelector(name string) (turandot.Selector, error) {
	if strings.HasPrefix(name, "0x") {
		value, err := turandot.ParseFelt(name)
		if err != nil {
			return turandot.Selector{}, err
		}
		return turandot.Selector(value), nil
	}
	if name == "" {
		return turandot.Selector{}, fmt.Errorf("empty entry point name")
	}
	return turandot.SelectorFromName(name), nil
}

// infoFields maps the field names accepted by the get_execution_info
// operation to their projection of the execution information.
var infoFields = map[string]func(turandot.ExecutionInfo) turandot.Felt{
	"block_number":     func(info turandot.ExecutionInfo) turandot.Felt { return turandot.NewFelt(uint64(info.BlockNumber)) },
	"timestamp":        func(info turandot.ExecutionInfo) turandot.Felt { return turandot.NewFelt(uint64(info.Timestamp)) },
	"sequencer":        func(info turandot.ExecutionInfo) turandot.Felt { return turandot.Felt(info.Sequencer) },
	"chain_id":         func(info turandot.ExecutionInfo) turandot.Felt { return info.ChainID },
	"transaction_hash": func(info turandot.ExecutionInfo) turandot.Felt { return turandot.Felt(info.TransactionHash) },
	"version":          func(info turandot.ExecutionInfo) turandot.Felt { return turandot.NewFelt(uint64(info.Version)) },
	"sender":           func(info turandot.ExecutionInfo) turandot.Felt { return turandot.Felt(info.Sender) },
	"nonce":            func(info turandot.ExecutionInfo) turandot.Felt { return info.Nonce },
	"max_fee":          func(info turandot.ExecutionInfo) turandot.Felt { return info.MaxFee },
	"tip":              func(info turandot.ExecutionInfo) turandot.Felt { return turandot.NewFelt(uint64(info.Tip)) },
	"contract":         func(info turandot.ExecutionInfo) turandot.Felt { return turandot.Felt(info.Contract) },
	"caller":           func(info turandot.ExecutionInfo) turandot.Felt { return turandot.Felt(info.Caller) },
	"selector":         func(info turandot.ExecutionInfo) turandot.Felt { return turandot.Felt(info.Selector) },
}

// program is the compiled form of a scripted class. Scripts are validated at
// compile time; the runner can rely on every operation being well-formed.
type program struct {
	scripts map[entryPointKey][]operation
}

type entryPointKey struct {
	kind     turandot.EntryPointType
	selector turandot.Selector
}

func (p *program) HasEntryPoint(kind turandot.EntryPointType, selector turandot.Selector) bool {
	_, found := p.scripts[entryPointKey{kind: kind, selector: selector}]
	return found
}

func (p *program) script(kind turandot.EntryPointType, selector turandot.Selector) ([]operation, bool) {
	script, found := p.scripts[entryPointKey{kind: kind, selector: selector}]
	return script, found
}

func (p *program) add(kind turandot.EntryPointType, selector turandot.Selector, script []operation) error {
	for i := range script {
		if err := prepareOperation(&script[i]); err != nil {
			return fmt.Errorf("operation %d: %w", i, err)
		}
	}
	key := entryPointKey{kind: kind, selector: selector}
	if _, found := p.scripts[key]; found {
		return fmt.Errorf("duplicate selector %v", selector)
	}
	p.scripts[key] = script
	return nil
}

func (p *program) addSpace(kind turandot.EntryPointType, scripts map[string][]operation) error {
	for name, script := range scripts {
		selector, err := resolveSelector(name)
		if err != nil {
			return fmt.Errorf("invalid entry point name %q: %w", name, err)
		}
		if err := p.add(kind, selector, script); err != nil {
			return fmt.Errorf("invalid entry point %q: %w", name, err)
		}
	}
	return nil
}

type compiler struct{}

func (compiler) Compile(definition turandot.ClassDefinition) (turandot.CompiledProgram, error) {
	decoder := json.NewDecoder(bytes.NewReader(definition))
	decoder.DisallowUnknownFields()
	var document classDocument
	if err := decoder.Decode(&document); err != nil {
		return nil, fmt.Errorf("malformed class definition: %w", err)
	}
	result := &program{scripts: map[entryPointKey][]operation{}}
	if err := result.addSpace(turandot.ExternalEntryPoint, document.External); err != nil {
		return nil, err
	}
	if document.Constructor != nil {
		if err := result.add(turandot.ConstructorEntryPoint, turandot.ConstructorSelector, *document.Constructor); err != nil {
			return nil, fmt.Errorf("invalid constructor: %w", err)
		}
	}
	if err := result.addSpace(turandot.L1HandlerEntryPoint, document.L1Handlers); err != nil {
		return nil, err
	}
	return result, nil
}

// prepareOperation checks that the operation carries the operands its name
// requires and resolves entry point and builtin names.
func prepareOperation(op *operation) error {
	switch op.Op {
	case opUseSteps:
		if op.Steps <= 0 {
			return fmt.Errorf("%s requires a positive step count", op.Op)
		}
	case opUseBuiltin:
		builtin, err := turandot.ParseBuiltin(op.Builtin)
		if err != nil {
			return err
		}
		op.builtin = builtin
		if op.Count == 0 {
			return fmt.Errorf("%s requires a positive count", op.Op)
		}
	case opMemoryHoles:
		if op.Count == 0 {
			return fmt.Errorf("%s requires a positive count", op.Op)
		}
	case opStorageRead:
		if op.Key == nil {
			return fmt.Errorf("%s requires a key", op.Op)
		}
		return feltOperands(op.Key)
	case opStorageWrite:
		if op.Key == nil || op.Value == nil {
			return fmt.Errorf("%s requires a key and a value", op.Op)
		}
		return feltOperands(op.Key, op.Value)
	case opEmitEvent:
		if err := feltOperandList(op.Keys); err != nil {
			return err
		}
		return feltOperandList(op.Data)
	case opSendMessage:
		if op.To == nil {
			return fmt.Errorf("%s requires a target address", op.Op)
		}
		if err := feltOperands(op.To); err != nil {
			return err
		}
		return feltOperandList(op.Payload)
	case opCallContract:
		if op.Contract == nil {
			return fmt.Errorf("%s requires a contract", op.Op)
		}
		if err := feltOperands(op.Contract); err != nil {
			return err
		}
		if err := feltOperandList(op.Calldata); err != nil {
			return err
		}
		return resolveCallSelector(op)
	case opLibraryCall:
		if op.Class == nil {
			return fmt.Errorf("%s requires a class", op.Op)
		}
		if err := feltOperands(op.Class); err != nil {
			return err
		}
		if err := feltOperandList(op.Calldata); err != nil {
			return err
		}
		return resolveCallSelector(op)
	case opDeploy:
		if op.Class == nil || op.Salt == nil {
			return fmt.Errorf("%s requires a class and a salt", op.Op)
		}
		if err := feltOperands(op.Class, op.Salt); err != nil {
			return err
		}
		return feltOperandList(op.Calldata)
	case opReplaceClass:
		if op.Class == nil {
			return fmt.Errorf("%s requires a class", op.Op)
		}
		return feltOperands(op.Class)
	case opExecutionInfo:
		if _, found := infoFields[op.Field]; !found {
			return fmt.Errorf("unknown execution info field %q", op.Field)
		}
	case opBlockHash:
		if op.Number < 0 {
			return fmt.Errorf("%s requires a non-negative block number", op.Op)
		}
	case opKeccak, opStarkKeccak:
		// Payload parts may mix field elements and text fragments.
	case opEcAdd:
		if op.P == nil || op.Q == nil {
			return fmt.Errorf("%s requires two points", op.Op)
		}
		return feltOperands(&op.P.X, &op.P.Y, &op.Q.X, &op.Q.Y)
	case opEcMul:
		if op.P == nil || op.Scalar == nil {
			return fmt.Errorf("%s requires a point and a scalar", op.Op)
		}
		return feltOperands(&op.P.X, &op.P.Y, op.Scalar)
	case opFail:
		return feltOperandList(op.Values)
	case opReturn:
		if op.From != "" && len(op.Values) > 0 {
			return fmt.Errorf("%s takes either values or a variable, not both", op.Op)
		}
		return feltOperandList(op.Values)
	default:
		return fmt.Errorf("unknown operation %q", op.Op)
	}
	return nil
}

func resolveCallSelector(op *operation) error {
	if op.EntryPoint == "" {
		return fmt.Errorf("%s requires an entry point", op.Op)
	}
	selector, err := resolveSelector(op.EntryPoint)
	if err != nil {
		return err
	}
	op.selector = selector
	return nil
}

func feltOperands(args ...*Arg) error {
	for _, arg := range args {
		if arg.kind == argText {
			return fmt.Errorf("text operands are only allowed in hash payloads")
		}
	}
	return nil
}

func feltOperandList(args []Arg) error {
	for i := range args {
		if err := feltOperands(&args[i]); err != nil {
			return err
		}
	}
	return nil
}
