package main

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marketbot/negotiation"
	"marketbot/notify"
	"marketbot/store"
)

type captureNotifier struct {
	kinds []notify.Kind
}

func (n *captureNotifier) Notify(ctx context.Context, kind notify.Kind, p notify.Payload) error {
	n.kinds = append(n.kinds, kind)
	return nil
}

func newTurnEngine(n notify.Notifier) *negotiation.Engine {
	return negotiation.NewEngine(negotiation.NewPolicy(20), negotiation.NewClassifier(nil), negotiation.DefaultScript(), n, 2)
}

func putTestConversation(st *store.Store) {
	c := &store.Conversation{
		ID:              "t1",
		ConversationURL: "https://www.facebook.com/messages/t/t1",
		ProductName:     "iPhone 13 Pro Max",
		Phase:           store.PhaseOfferSent,
		OfferAmount:     280,
		CurrentOffer:    280,
	}
	c.Append("us", "Hi, is this still available? I can do $280 cash for it.")
	st.PutConversation(c)
}

func TestRunTurnFailedSendLeavesRecordUntouched(t *testing.T) {
	dir := t.TempDir()
	listings := filepath.Join(dir, "listings.json")
	messages := filepath.Join(dir, "messages.json")
	st, err := store.Open(listings, messages)
	require.NoError(t, err)
	putTestConversation(st)
	n := &captureNotifier{}
	engine := newTurnEngine(n)

	sendErr := errors.New("chat input not found")
	reply, err := runTurn(context.Background(), st, engine, "t1", "could you do $290?", func(string) error {
		return sendErr
	})
	require.ErrorIs(t, err, sendErr)
	assert.Empty(t, reply)

	c, ok := st.GetConversation("t1")
	require.True(t, ok)
	assert.Equal(t, store.PhaseOfferSent, c.Phase)
	assert.Zero(t, c.FinalPrice)
	assert.Equal(t, 1, c.MessageCount)
	assert.Equal(t, "Hi, is this still available? I can do $280 cash for it.", c.LastMessage,
		"seller message must not be marked handled when the reply never went out")

	//Nothing about the failed turn reaches disk either
	require.NoError(t, st.Flush())
	st2, err := store.Open(listings, messages)
	require.NoError(t, err)
	persisted, ok := st2.GetConversation("t1")
	require.True(t, ok)
	assert.Equal(t, store.PhaseOfferSent, persisted.Phase)
	assert.Equal(t, 1, persisted.MessageCount)

	//The transition never committed, so no alert should have gone out
	assert.Empty(t, n.kinds)
}

func TestRunTurnRetrySucceedsAfterFailedSend(t *testing.T) {
	dir := t.TempDir()
	st, err := store.Open(filepath.Join(dir, "listings.json"), filepath.Join(dir, "messages.json"))
	require.NoError(t, err)
	putTestConversation(st)
	n := &captureNotifier{}
	engine := newTurnEngine(n)
	ctx := context.Background()

	_, err = runTurn(ctx, st, engine, "t1", "could you do $290?", func(string) error {
		return errors.New("temporary failure")
	})
	require.Error(t, err)

	var sent []string
	reply, err := runTurn(ctx, st, engine, "t1", "could you do $290?", func(r string) error {
		sent = append(sent, r)
		return nil
	})
	require.NoError(t, err)
	assert.Contains(t, reply, "$290")
	require.Len(t, sent, 1)

	c, _ := st.GetConversation("t1")
	assert.Equal(t, store.PhaseDealPending, c.Phase)
	assert.Equal(t, 290, c.FinalPrice)
	assert.Equal(t, []notify.Kind{notify.KindDealClosed}, n.kinds)
}

func TestRunTurnCommitsRepliesAndHandoffs(t *testing.T) {
	dir := t.TempDir()
	st, err := store.Open(filepath.Join(dir, "listings.json"), filepath.Join(dir, "messages.json"))
	require.NoError(t, err)
	putTestConversation(st)
	engine := newTurnEngine(&captureNotifier{})
	ctx := context.Background()

	//A handoff produces no reply; the send callback must not run and the
	//phase change still commits
	called := false
	reply, err := runTurn(ctx, st, engine, "t1", "let me think it over", func(string) error {
		called = true
		return nil
	})
	require.NoError(t, err)
	assert.Empty(t, reply)
	assert.False(t, called)

	c, _ := st.GetConversation("t1")
	assert.Equal(t, store.PhaseNeedsHumanHelp, c.Phase)
}
