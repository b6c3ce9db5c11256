package match

import (
	"fmt"

	"github.com/oxygenfuel/contract/protocol"
)

// ExecResult is what a command produced. Only the field for the command type is set.
type ExecResult struct {
	Type  protocol.CommandType
	Order *OrderResult
}

// Execute decodes and runs a command envelope under the engine lock.
// A command with a non-zero SeqID at or below the last handled one is rejected with
// ErrDuplicateCommand. Otherwise the SeqID is recorded whether or not the command
// itself succeeds, so a journal replay sees the same outcomes as the live run.
func (engine *Engine) Execute(cmd *protocol.Command) (*ExecResult, error) {
	if cmd == nil {
		return nil, ErrInvalidParam
	}

	engine.mu.Lock()
	defer engine.mu.Unlock()

	if cmd.SeqID != 0 && cmd.SeqID <= engine.lastCmdSeqID {
		return nil, fmt.Errorf("%w: %d <= %d", ErrDuplicateCommand, cmd.SeqID, engine.lastCmdSeqID)
	}

	result, err := engine.execute(cmd)
	if cmd.SeqID != 0 {
		engine.lastCmdSeqID = cmd.SeqID
	}
	if err != nil {
		logRejected(cmd.Type.String(), err, "seq_id", cmd.SeqID)
		return nil, err
	}
	return result, nil
}

func (engine *Engine) execute(cmd *protocol.Command) (*ExecResult, error) {
	result := &ExecResult{Type: cmd.Type}

	switch cmd.Type {
	case protocol.CmdInit:
		var payload protocol.InitCommand
		if err := engine.decode(cmd, &payload); err != nil {
			return nil, err
		}
		base, err := HexToAssetID(payload.BaseAsset)
		if err != nil {
			return nil, err
		}
		quote, err := HexToAssetID(payload.QuoteAsset)
		if err != nil {
			return nil, err
		}
		var opts []InitOption
		if payload.PriceDecimals != nil {
			opts = append(opts, WithPriceDecimals(*payload.PriceDecimals))
		}
		return result, engine.init(base, quote, opts...)

	case protocol.CmdDeposit:
		var payload protocol.DepositCommand
		if err := engine.decode(cmd, &payload); err != nil {
			return nil, err
		}
		account, err := HexToAccountID(payload.Account)
		if err != nil {
			return nil, err
		}
		asset, err := HexToAssetID(payload.Asset)
		if err != nil {
			return nil, err
		}
		return result, engine.deposit(account, asset, payload.Amount)

	case protocol.CmdPlaceOrder:
		var payload protocol.PlaceOrderCommand
		if err := engine.decode(cmd, &payload); err != nil {
			return nil, err
		}
		owner, err := HexToAccountID(payload.Account)
		if err != nil {
			return nil, err
		}
		order, err := engine.placeOrder(owner, payload.Side, payload.Price, payload.Amount)
		if err != nil {
			return nil, err
		}
		result.Order = order
		return result, nil

	default:
		return nil, fmt.Errorf("%w: command type %d", ErrInvalidParam, cmd.Type)
	}
}

func (engine *Engine) decode(cmd *protocol.Command, v any) error {
	if err := engine.serializer.Unmarshal(cmd.Payload, v); err != nil {
		return fmt.Errorf("%w: decode %s payload: %v", ErrInvalidParam, cmd.Type, err)
	}
	return nil
}

// NewCommand builds a command envelope with the default JSON serializer.
func NewCommand(seqID uint64, cmdType protocol.CommandType, payload any) (*protocol.Command, error) {
	data, err := (&protocol.DefaultJSONSerializer{}).Marshal(payload)
	if err != nil {
		return nil, err
	}
	return &protocol.Command{
		Version: 1,
		SeqID:   seqID,
		Type:    cmdType,
		Payload: data,
	}, nil
}
