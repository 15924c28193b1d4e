package elementary

import (
	"github.com/ehrlich-b/elementary/internal/errcode"
	"github.com/ehrlich-b/elementary/internal/reconcile"
	"github.com/ehrlich-b/elementary/internal/value"
)

// Opcode re-exports the instruction reconciler's opcode enum as the
// public wire constants a client encodes a batch with.
type Opcode = reconcile.Opcode

const (
	CreateNode    = reconcile.CreateNode
	DeleteNode    = reconcile.DeleteNode
	AppendChild   = reconcile.AppendChild
	SetProperty   = reconcile.SetProperty
	ActivateRoots = reconcile.ActivateRoots
	CommitUpdates = reconcile.CommitUpdates
)

// decodeBatch parses the wire format — an array of arrays, each
// beginning with an integer opcode — into the reconciler's
// typed Instruction slice. It fails fast with InvalidInstruction on the
// first malformed entry; no instructions from a malformed batch are
// applied.
func decodeBatch(wire value.Value) ([]reconcile.Instruction, errcode.Code) {
	items, ok := wire.AsArray()
	if !ok {
		return nil, errcode.InvalidInstruction
	}
	out := make([]reconcile.Instruction, 0, len(items))
	for _, item := range items {
		ins, code := decodeInstruction(item)
		if code != errcode.Ok {
			return nil, code
		}
		out = append(out, ins)
	}
	return out, errcode.Ok
}

func decodeInstruction(item value.Value) (reconcile.Instruction, errcode.Code) {
	args, ok := item.AsArray()
	if !ok || len(args) == 0 {
		return reconcile.Instruction{}, errcode.InvalidInstruction
	}
	opNum, ok := args[0].AsFloat()
	if !ok {
		return reconcile.Instruction{}, errcode.InvalidInstruction
	}
	op := reconcile.Opcode(int(opNum))

	switch op {
	case reconcile.CreateNode:
		if len(args) != 3 {
			return reconcile.Instruction{}, errcode.InvalidInstruction
		}
		id, ok1 := asID(args[1])
		kind, ok2 := args[2].AsString()
		if !ok1 || !ok2 {
			return reconcile.Instruction{}, errcode.InvalidInstruction
		}
		return reconcile.Instruction{Op: op, ID: id, Kind: kind}, errcode.Ok

	case reconcile.DeleteNode:
		if len(args) != 2 {
			return reconcile.Instruction{}, errcode.InvalidInstruction
		}
		id, ok1 := asID(args[1])
		if !ok1 {
			return reconcile.Instruction{}, errcode.InvalidInstruction
		}
		return reconcile.Instruction{Op: op, ID: id}, errcode.Ok

	case reconcile.AppendChild:
		if len(args) != 3 {
			return reconcile.Instruction{}, errcode.InvalidInstruction
		}
		parentID, ok1 := asID(args[1])
		childID, ok2 := asID(args[2])
		if !ok1 || !ok2 {
			return reconcile.Instruction{}, errcode.InvalidInstruction
		}
		return reconcile.Instruction{Op: op, ParentID: parentID, ChildID: childID}, errcode.Ok

	case reconcile.SetProperty:
		if len(args) != 4 {
			return reconcile.Instruction{}, errcode.InvalidInstruction
		}
		id, ok1 := asID(args[1])
		key, ok2 := args[2].AsString()
		if !ok1 || !ok2 {
			return reconcile.Instruction{}, errcode.InvalidInstruction
		}
		return reconcile.Instruction{Op: op, ID: id, Key: key, Value: args[3]}, errcode.Ok

	case reconcile.ActivateRoots:
		if len(args) != 2 {
			return reconcile.Instruction{}, errcode.InvalidInstruction
		}
		idVals, ok := args[1].AsArray()
		if !ok {
			return reconcile.Instruction{}, errcode.InvalidInstruction
		}
		ids := make([]int32, 0, len(idVals))
		for _, v := range idVals {
			id, ok := asID(v)
			if !ok {
				return reconcile.Instruction{}, errcode.InvalidInstruction
			}
			ids = append(ids, id)
		}
		return reconcile.Instruction{Op: op, RootIDs: ids}, errcode.Ok

	case reconcile.CommitUpdates:
		if len(args) != 1 {
			return reconcile.Instruction{}, errcode.InvalidInstruction
		}
		return reconcile.Instruction{Op: op}, errcode.Ok

	default:
		return reconcile.Instruction{}, errcode.InvalidInstruction
	}
}

func asID(v value.Value) (int32, bool) {
	n, ok := v.AsFloat()
	if !ok {
		return 0, false
	}
	return int32(n), true
}
