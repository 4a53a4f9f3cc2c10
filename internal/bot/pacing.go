package bot

import (
	"time"

	"github.com/doinghun/merlabot-public/internal/model"
)

// PaceMessages converts an ordered fulfillment message sequence into send
// directives with humanlike delivery offsets. Distinct messages are spaced
// one quantum apart by source index; a run of consecutive card messages
// collapses into a single carousel directive scheduled at the offset of the
// slot before the run's trigger.
//
// The resulting offsets are non-decreasing, and the directive count equals
// (non-card messages) + (maximal consecutive card runs).
func PaceMessages(msgs []model.Message, quantum time.Duration) []model.Directive {
	var out []model.Directive
	var cards []model.Card

	for i, m := range msgs {
		if m.Kind == model.KindCard {
			if m.Card != nil {
				cards = append(cards, *m.Card)
			}
			// terminal card run: flush here, no separate directive
			if i == len(msgs)-1 && len(cards) > 0 {
				out = append(out, carouselDirective(cards, offsetAt(i-1, quantum)))
				cards = nil
			}
			continue
		}

		if len(cards) > 0 {
			out = append(out, carouselDirective(cards, offsetAt(i-1, quantum)))
			cards = nil
		}
		out = append(out, directiveFor(m, offsetAt(i, quantum)))
	}

	return out
}

// offsetAt clamps the slot index at zero: a card run starting at index 0
// would otherwise compute a negative offset.
func offsetAt(i int, quantum time.Duration) time.Duration {
	if i < 0 {
		i = 0
	}
	return time.Duration(i) * quantum
}

func carouselDirective(cards []model.Card, offset time.Duration) model.Directive {
	merged := make([]model.Card, len(cards))
	copy(merged, cards)
	return model.Directive{Kind: model.DirectiveCarousel, Offset: offset, Cards: merged}
}

func directiveFor(m model.Message, offset time.Duration) model.Directive {
	switch m.Kind {
	case model.KindAttachment:
		return model.Directive{Kind: model.DirectiveAttachment, Offset: offset, URL: m.AttachmentURL}
	default:
		return model.Directive{Kind: model.DirectiveText, Offset: offset, Text: m.Text}
	}
}
