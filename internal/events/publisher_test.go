package events_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/The-Open-Music-Box/theopenmusicbox-sub005/internal/domain"
	"github.com/The-Open-Music-Box/theopenmusicbox-sub005/internal/events"
)

func TestPublisher_DeliversToTypeSubscribers(t *testing.T) {
	p := events.NewPublisher(nil)

	var first, second []events.Event
	p.Subscribe(events.EventTagDetected, func(e events.Event) { first = append(first, e) })
	p.Subscribe(events.EventTagDetected, func(e events.Event) { second = append(second, e) })

	tag := domain.NewNfcTag("04a1b2c3")
	p.Publish(events.NewTagDetectedEvent(tag, ""))

	require.Len(t, first, 1)
	require.Len(t, second, 1)
	assert.Equal(t, events.EventTagDetected, first[0].Type)
}

func TestPublisher_TypeSubscriberDoesNotSeeOtherTypes(t *testing.T) {
	p := events.NewPublisher(nil)

	var detected, removed []events.Event
	p.Subscribe(events.EventTagDetected, func(e events.Event) { detected = append(detected, e) })
	p.Subscribe(events.EventTagRemoved, func(e events.Event) { removed = append(removed, e) })

	tag := domain.NewNfcTag("04a1b2c3")
	p.Publish(events.NewTagDetectedEvent(tag, ""))
	p.Publish(events.NewTagRemovedEvent("04a1b2c3"))
	p.Publish(events.NewTagDissociatedEvent("04a1b2c3", "pl-1"))

	require.Len(t, detected, 1)
	assert.Equal(t, events.EventTagDetected, detected[0].Type)
	require.Len(t, removed, 1)
	assert.Equal(t, events.EventTagRemoved, removed[0].Type)
}

func TestPublisher_SubscribeAllSeesEveryType(t *testing.T) {
	p := events.NewPublisher(nil)

	var all []events.Event
	p.SubscribeAll(func(e events.Event) { all = append(all, e) })

	tag := domain.NewNfcTag("04a1b2c3")
	p.Publish(events.NewTagDetectedEvent(tag, ""))
	p.Publish(events.NewTagRemovedEvent("04a1b2c3"))

	require.Len(t, all, 2)
	assert.Equal(t, events.EventTagDetected, all[0].Type)
	assert.Equal(t, events.EventTagRemoved, all[1].Type)
}

func TestPublisher_Unsubscribe(t *testing.T) {
	p := events.NewPublisher(nil)

	var typed, all int
	unsubscribeTyped := p.Subscribe(events.EventTagRemoved, func(events.Event) { typed++ })
	unsubscribeAll := p.SubscribeAll(func(events.Event) { all++ })

	p.Publish(events.NewTagRemovedEvent("04a1b2c3"))
	unsubscribeTyped()
	unsubscribeAll()
	p.Publish(events.NewTagRemovedEvent("04a1b2c3"))

	assert.Equal(t, 1, typed)
	assert.Equal(t, 1, all)
}

func TestPublisher_PanickingHandlerDoesNotBlockOthers(t *testing.T) {
	p := events.NewPublisher(nil)

	p.Subscribe(events.EventTagRemoved, func(events.Event) { panic("boom") })
	var received int
	p.Subscribe(events.EventTagRemoved, func(events.Event) { received++ })

	require.NotPanics(t, func() {
		p.Publish(events.NewTagRemovedEvent("04a1b2c3"))
	})
	assert.Equal(t, 1, received)
}

func TestPublisher_LogKeepsHistory(t *testing.T) {
	p := events.NewPublisher(nil)

	session := domain.NewAssociationSession("ses-1", "pl-1", time.Minute)
	p.Publish(events.NewSessionStartedEvent(session))
	require.NoError(t, session.DetectTag("04a1b2c3"))
	require.NoError(t, session.MarkSuccessful())
	p.Publish(events.NewSessionCompletedEvent(session))

	log := p.Log()
	require.Len(t, log, 2)
	assert.Equal(t, events.EventSessionStarted, log[0].Type)
	assert.Equal(t, events.EventSessionCompleted, log[1].Type)

	data, ok := log[1].Data.(events.SessionData)
	require.True(t, ok)
	assert.Equal(t, "ses-1", data.SessionID)
	assert.Equal(t, domain.SessionSuccess, data.State)
	assert.Equal(t, "04a1b2c3", data.TagID)
}

func TestEventConstructors_PopulateEnvelope(t *testing.T) {
	e := events.NewTagAssociatedEvent("04a1b2c3", "pl-1", "ses-1", true)

	assert.NotEmpty(t, e.ID)
	assert.False(t, e.Timestamp.IsZero())
	assert.Equal(t, events.EventTagAssociated, e.Type)

	data, ok := e.Data.(events.TagAssociatedData)
	require.True(t, ok)
	assert.Equal(t, "04a1b2c3", data.TagID)
	assert.Equal(t, "pl-1", data.PlaylistID)
	assert.True(t, data.Override)
}
