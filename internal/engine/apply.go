package engine

import (
	"errors"
	"fmt"

	"github.com/roach88/gridsync/internal/ir"
	"github.com/roach88/gridsync/internal/ledger"
	"github.com/roach88/gridsync/internal/store"
)

// outcome is what applying one command to a ledger produced.
type outcome struct {
	Case    string
	Result  ir.IRObject
	Changes store.Changes
}

// apply runs cmd against l. Ledger rejections become an outcome whose case
// is the error code; any other error is returned.
func apply(l *ledger.Ledger, cmd ir.Command) (outcome, error) {
	caller := ledger.Principal(cmd.Caller)

	out, err := applyOp(l, caller, cmd)
	if err == nil {
		out.Case = ir.CaseOK
		return out, nil
	}

	var le *ledger.Error
	if errors.As(err, &le) {
		return outcome{Case: string(le.Code), Result: rejectionResult(le)}, nil
	}
	return outcome{}, fmt.Errorf("apply %s: %w", cmd.Kind, err)
}

func applyOp(l *ledger.Ledger, caller ledger.Principal, cmd ir.Command) (outcome, error) {
	switch cmd.Kind {
	case ir.KindRegisterProducer:
		p, err := l.RegisterProducer(caller)
		if err != nil {
			return outcome{}, err
		}
		return outcome{Result: EncodeProducer(p), Changes: store.Changes{Producers: []ledger.Producer{p}}}, nil

	case ir.KindRegisterConsumer:
		c, err := l.RegisterConsumer(caller)
		if err != nil {
			return outcome{}, err
		}
		return outcome{Result: EncodeConsumer(c), Changes: store.Changes{Consumers: []ledger.Consumer{c}}}, nil

	case ir.KindDeactivateProducer:
		p, err := l.DeactivateProducer(caller)
		if err != nil {
			return outcome{}, err
		}
		return outcome{Result: EncodeProducer(p), Changes: store.Changes{Producers: []ledger.Producer{p}}}, nil

	case ir.KindDeactivateConsumer:
		c, err := l.DeactivateConsumer(caller)
		if err != nil {
			return outcome{}, err
		}
		return outcome{Result: EncodeConsumer(c), Changes: store.Changes{Consumers: []ledger.Consumer{c}}}, nil

	case ir.KindListEnergyUnits:
		lst, err := l.ListEnergyUnits(caller, cmd.Units, cmd.Price)
		if err != nil {
			return outcome{}, err
		}
		return outcome{
			Result: EncodeListing(lst),
			Changes: store.Changes{
				Listings:      []ledger.Listing{lst},
				NextListingID: lst.ID + 1,
			},
		}, nil

	case ir.KindBuyEnergy:
		sum, err := l.BuyEnergy(caller, cmd.ListingID, cmd.Units)
		if err != nil {
			return outcome{}, err
		}
		seller, _ := l.ProducerInfo(sum.Seller)
		buyer, _ := l.ConsumerInfo(sum.Buyer)
		return outcome{
			Result: tradeResult(sum),
			Changes: store.Changes{
				Producers: []ledger.Producer{seller},
				Consumers: []ledger.Consumer{buyer},
				Listings:  []ledger.Listing{sum.Listing},
			},
		}, nil

	default:
		return outcome{}, fmt.Errorf("unknown command kind %q", cmd.Kind)
	}
}
