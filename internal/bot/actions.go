package bot

import (
	"context"
	"fmt"
	"time"

	"github.com/doinghun/merlabot-public/internal/logger"
	"github.com/doinghun/merlabot-public/internal/metrics"
	"github.com/doinghun/merlabot-public/internal/model"
	"go.uber.org/zap"
)

// Action enumerates the NLU actions with a fixed choreography. Adding a new
// one means adding a constant, its parse arm, and its dispatch arm.
type Action int

const (
	ActionDefault Action = iota // no dedicated choreography; pace the messages
	ActionWelcome
	ActionUnknownInput
	ActionAskMenu
	ActionFoodChoice
)

func ParseAction(name string) Action {
	switch name {
	case "input.welcome":
		return ActionWelcome
	case "input.unknown":
		return ActionUnknownInput
	case "ask-menu-flow":
		return ActionAskMenu
	case "food-choice":
		return ActionFoodChoice
	default:
		return ActionDefault
	}
}

func (a Action) String() string {
	switch a {
	case ActionWelcome:
		return "input.welcome"
	case ActionUnknownInput:
		return "input.unknown"
	case ActionAskMenu:
		return "ask-menu-flow"
	case ActionFoodChoice:
		return "food-choice"
	default:
		return "default"
	}
}

const (
	welcomeFollowUpText = "안녕! 나는 싱가폴 인싸 멀라봇이야 🦁. \n내가 어떻게 도와줄까?"
	unknownFollowUpText = "미안 아직 거기까진 못알아들었어.. 다른거 물어봐!"
	askMenuText         = "배고프지! 내가 이따 뭐먹을지 정해줄께"
	foodVerdictText     = "내 추천 어땡?? ㅇㅅㅇ"
	postbackUnknownText = "큭... 아직 거기까진.... ㅜ"
	attachmentAckText   = "사진 잘 받았어! 근데 나는 글이 더 편해 ㅎㅎ"

	hungryGifPath = "/assets/merlabot-hungry-resized.gif"
)

// dispatchAction runs the choreography for a named action. Step offsets are
// absolute, measured from this call, and every scheduled step always fires;
// a step whose lookup comes back empty is dropped without a user-visible
// message.
func (b *Bot) dispatchAction(ctx context.Context, senderID string, action Action, resp *model.NLUResponse) {
	switch action {
	case ActionWelcome:
		b.scheduleDirectives(senderID, PaceMessages(resp.FulfillmentMessages, b.quantum))
		b.typingOn(ctx, senderID)
		b.scheduleAt(senderID, 2*time.Second, model.Directive{
			Kind: model.DirectiveQuickReply,
			Text: welcomeFollowUpText,
			Replies: []model.QuickReplyOption{
				{Title: "뭐 먹지?", Payload: "MENU_RECOMMENDATION"},
			},
		})

	case ActionUnknownInput:
		b.scheduleDirectives(senderID, PaceMessages(resp.FulfillmentMessages, b.quantum))
		b.typingOn(ctx, senderID)
		b.scheduleAt(senderID, 2*time.Second, model.Directive{
			Kind: model.DirectiveQuickReply,
			Text: unknownFollowUpText,
			Replies: []model.QuickReplyOption{
				{Title: "홈으로 가기", Payload: "WELCOME"},
			},
		})

	case ActionAskMenu:
		b.deliver(ctx, senderID, model.Directive{
			Kind: model.DirectiveGif,
			URL:  b.serverURL + hungryGifPath,
		})
		b.scheduleAt(senderID, 4*time.Second, model.Directive{
			Kind: model.DirectiveQuickReply,
			Text: askMenuText,
			Replies: []model.QuickReplyOption{
				{Title: "그래!", Payload: "FOOD_TYPE"},
			},
		})

	case ActionFoodChoice:
		cuisine := resp.Param("food_type")
		b.deliver(ctx, senderID, model.Directive{
			Kind: model.DirectiveText,
			Text: fmt.Sprintf("오~~ %s! 굳 초이스. 잠깐만 기다려봐..", cuisine),
		})
		b.typingOn(ctx, senderID)

		b.sched.AfterFunc(2*time.Second, func() {
			b.recommendRestaurant(senderID, cuisine)
		})
		b.scheduleAt(senderID, 4*time.Second, model.Directive{
			Kind: model.DirectiveQuickReply,
			Text: foodVerdictText,
			Replies: []model.QuickReplyOption{
				{Title: "오 👍👍", Payload: "NEXT"},
				{Title: "다른거 추천 해줘!", Payload: "FOOD_TYPE"},
			},
		})

	default:
		b.scheduleDirectives(senderID, PaceMessages(resp.FulfillmentMessages, b.quantum))
	}
}

// scheduleAt queues a single directive at an absolute offset from now.
func (b *Bot) scheduleAt(recipientID string, offset time.Duration, d model.Directive) {
	d.Offset = offset
	b.sched.AfterFunc(offset, func() {
		b.deliver(context.Background(), recipientID, d)
	})
}

// recommendRestaurant is the lookup-backed choreography step: a hit becomes
// a one-tile carousel, a miss or error drops the step silently.
func (b *Bot) recommendRestaurant(senderID, cuisine string) {
	ctx, cancel := context.WithTimeout(context.Background(), b.lookupTimeout)
	defer cancel()

	r, err := b.restaurants.Random(ctx, cuisine)
	if err != nil || r == nil {
		logger.L().Warn("restaurant lookup yielded nothing",
			zap.String("sender_id", senderID),
			zap.String("cuisine", cuisine),
			zap.Error(err))
		metrics.StepsDroppedTotal.WithLabelValues(ActionFoodChoice.String()).Inc()
		b.emitter.Emit(ctx, senderID, model.DirectiveCarousel.String(), model.DeliveryDropped, "restaurant lookup: "+cuisine)
		return
	}

	b.deliver(ctx, senderID, model.Directive{
		Kind: model.DirectiveCarousel,
		Cards: []model.Card{{
			Title:    r.Name,
			Subtitle: r.Description,
			ImageURL: r.ImageURL,
			URL:      r.MapURL,
			Buttons:  []model.CardButton{{Title: "구글 지도 보기", URL: r.MapURL}},
		}},
	})
}
