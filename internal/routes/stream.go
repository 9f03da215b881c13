package routes

import (
	"bufio"
	"context"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/calivra/calivra_bank/internal/account"
	"github.com/calivra/calivra_bank/internal/auth"
	"github.com/calivra/calivra_bank/internal/feed"
	"github.com/calivra/calivra_bank/internal/realtime"
	"github.com/calivra/calivra_bank/internal/settings"
)

const streamKeepAlive = 15 * time.Second

// topicFunc picks the topic a request may stream and how to read its current
// value. A nil loader replays the last published value instead.
type topicFunc func(c *fiber.Ctx) (string, realtime.Loader, error)

// streamTopic serves a topic as server-sent events. The current value is
// written first, then every later value, each as one complete event.
func streamTopic(hub realtime.Hub, topicOf topicFunc) fiber.Handler {
	return func(c *fiber.Ctx) error {
		topic, load, err := topicOf(c)
		if err != nil {
			return err
		}
		values, cancel, err := realtime.Follow(c.UserContext(), hub, topic, load)
		if err != nil {
			return err
		}

		c.Set(fiber.HeaderContentType, "text/event-stream")
		c.Set(fiber.HeaderCacheControl, "no-cache")
		c.Set(fiber.HeaderConnection, "keep-alive")
		c.Set("X-Accel-Buffering", "no")

		c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
			defer cancel()
			ticker := time.NewTicker(streamKeepAlive)
			defer ticker.Stop()
			for {
				select {
				case v, ok := <-values:
					if !ok {
						return
					}
					fmt.Fprintf(w, "event: %s\ndata: %s\n\n", topic, v)
				case <-ticker.C:
					fmt.Fprint(w, ": keep-alive\n\n")
				}
				// A failed flush means the client went away.
				if err := w.Flush(); err != nil {
					return
				}
			}
		})
		return nil
	}
}

func accountTopic(accounts *account.Service) topicFunc {
	return func(c *fiber.Ctx) (string, realtime.Loader, error) {
		sess, err := auth.MustSession(c)
		if err != nil {
			return "", nil, err
		}
		a, err := accounts.GetByOwner(c.UserContext(), sess.UserID)
		if err != nil {
			return "", nil, err
		}
		load := func(ctx context.Context) (any, error) { return accounts.Snapshot(ctx, a.ID) }
		return realtime.AccountTopic(a.ID), load, nil
	}
}

func sessionTopic(c *fiber.Ctx) (string, realtime.Loader, error) {
	sess, err := auth.MustSession(c)
	if err != nil {
		return "", nil, err
	}
	return realtime.SessionTopic(sess.UserID), nil, nil
}

func settingsTopic(svc *settings.Service) topicFunc {
	return func(*fiber.Ctx) (string, realtime.Loader, error) {
		load := func(ctx context.Context) (any, error) { return svc.Platform(ctx) }
		return realtime.TopicSettings, load, nil
	}
}

func queueTopic(events *feed.Feed) topicFunc {
	return func(*fiber.Ctx) (string, realtime.Loader, error) {
		load := func(ctx context.Context) (any, error) { return events.Counts(ctx) }
		return realtime.TopicAdminQueue, load, nil
	}
}
