// Package panel — render.go: сборка отрисовки меню.
// Сводка и списки всегда пересчитываются из сервисов-владельцев,
// никакого кеша в сессии нет.
package panel

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"

	"edustack.in/resource-bot/internal/common"
)

type renderOpt func(*Render)

func withErr(err error) renderOpt {
	return func(r *Render) { r.Err = err }
}

func withNotice(text string) renderOpt {
	return func(r *Render) { r.Notice = text }
}

func withPrompt(text string) renderOpt {
	return func(r *Render) { r.Prompt = text }
}

func withNotify(userID int64, text string) renderOpt {
	return func(r *Render) {
		r.Notify = append(r.Notify, Notification{UserID: userID, Text: text})
	}
}

// render собирает отрисовку состояния: свежая сводка плюс список,
// специфичный для меню. Отказ хранилища не ломает сессию — он
// просто отдаётся транспорту как ErrUnavailable.
func (m *Machine) render(ctx context.Context, state MenuState, opts ...renderOpt) Render {
	r := Render{State: state}
	for _, opt := range opts {
		opt(&r)
	}

	sum, err := m.stats.Collect(ctx)
	if err != nil {
		log.WithError(err).Error("Не удалось собрать сводку для меню")
		if r.Err == nil {
			r.Err = fmt.Errorf("%w: %v", common.ErrUnavailable, err)
		}
		return r
	}
	r.Summary = sum

	items, err := m.menuItems(ctx, state)
	if err != nil {
		log.WithError(err).WithField("state", state).Error("Не удалось собрать список меню")
		if r.Err == nil {
			r.Err = fmt.Errorf("%w: %v", common.ErrUnavailable, err)
		}
		return r
	}
	r.Items = items
	return r
}

func (m *Machine) menuItems(ctx context.Context, state MenuState) ([]Item, error) {
	switch state {
	case StateVerification:
		reqs, err := m.queue.ListPending(ctx)
		if err != nil {
			return nil, err
		}
		items := make([]Item, 0, len(reqs))
		for _, req := range reqs {
			items = append(items, Item{
				Text: fmt.Sprintf("#%d · user %d · ref %s · %s",
					req.ID, req.RequesterID, req.Reference,
					common.FormatDateTime(req.SubmittedAt)),
				Actions: []ItemAction{
					{Label: "Approve", Token: fmt.Sprintf("%s%d", tokenApprovePrefix, req.ID)},
					{Label: "Reject", Token: fmt.Sprintf("%s%d", tokenRejectPrefix, req.ID)},
				},
			})
		}
		return items, nil

	case StateResources:
		subjects, err := m.catalog.ListSubjects(ctx)
		if err != nil {
			return nil, err
		}
		items := make([]Item, 0, len(subjects))
		for _, info := range subjects {
			items = append(items, Item{
				Text: fmt.Sprintf("%s — %s", info.Name,
					common.CountNoun(info.ResourceCount, "material", "materials")),
			})
		}
		return items, nil

	case StateUsers:
		grants, err := m.access.ListActiveGrants(ctx, grantListLimit)
		if err != nil {
			return nil, err
		}
		items := make([]Item, 0, len(grants))
		for _, g := range grants {
			items = append(items, Item{
				Text: fmt.Sprintf("user %d · until %s",
					g.UserID, common.FormatDate(g.ExpiresAt)),
			})
		}
		return items, nil
	}
	return nil, nil
}
