package core

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Update is the 500ms heartbeat: it arms the pre-fetch near the end of the
// current track and fires the transition when the track runs out. The flood
// gate keeps a slow transition from being triggered twice, and a fruitless
// radio search from being retried before its cooldown.
func (c *Controller) Update(ctx context.Context) {
	c.mu.Lock()
	if c.state != StatePlaying || c.player == nil {
		c.mu.Unlock()
		return
	}
	pos := c.player.Position()
	dur := c.player.Duration()
	if dur == 0 && c.current != nil {
		dur = c.current.Duration
	}
	if dur == 0 {
		c.mu.Unlock()
		return
	}

	remaining := dur - pos
	needPreload := c.preload == nil && !c.preloading &&
		(pos > time.Duration(preloadFraction*float64(dur)) || remaining < preloadRemaining)
	if needPreload {
		c.preloading = true
	}

	atEnd := pos >= dur-transitionWindow
	exhausted := c.radioExhausted
	cooldown := c.cfg.RadioCooldown()
	c.mu.Unlock()

	if needPreload {
		go c.backgroundPreload(ctx)
	}

	if !atEnd {
		return
	}
	if exhausted && !c.gate.Allow("radio", cooldown) {
		return
	}
	if !c.gate.Allow("transition", transitionCooldown) {
		return
	}
	go func() {
		if err := c.Skip(ctx); err != nil {
			c.logger.Warn("transition failed", zap.Error(err))
		}
	}()
}

// backgroundPreload fills the preload slot ahead of the transition. The
// queue head wins; with an empty queue the selector runs early so the radio
// pick is already on disk when the track ends.
func (c *Controller) backgroundPreload(ctx context.Context) {
	defer func() {
		c.mu.Lock()
		c.preloading = false
		c.mu.Unlock()
	}()

	c.mu.Lock()
	currentID := ""
	if c.current != nil {
		currentID = c.current.ID
	}
	var head *QueueEntry
	if len(c.queue) > 0 {
		h := c.queue[0]
		head = &h
	}
	c.mu.Unlock()

	if head != nil {
		if head.Path != "" {
			c.mu.Lock()
			if c.preload == nil && len(c.queue) > 0 && c.queue[0].Ref.ID == head.Ref.ID {
				c.preload = &PreloadSlot{Ref: head.Ref, Path: head.Path, For: currentID}
			}
			c.mu.Unlock()
			return
		}

		ref := head.Ref
		if ref.SourceURL == "" {
			full, err := c.source.Probe(ctx, ref.ID)
			if err != nil {
				c.logger.Warn("preload probe failed", zap.String("id", ref.ID), zap.Error(err))
				return
			}
			ref.Duration = full.Duration
			ref.SourceURL = full.SourceURL
			if ref.Title == "" || IsGenericStored(ref.Title) {
				ref.Title = full.Title
			}
		}
		path, err := c.download(ctx, ref)
		if err != nil {
			return
		}

		c.mu.Lock()
		// The queue may have shuffled while downloading; only commit when
		// the head is still the entry we fetched.
		if len(c.queue) > 0 && c.queue[0].Ref.ID == head.Ref.ID {
			c.queue[0].Ref = ref
			c.queue[0].Path = path
			if c.preload == nil {
				c.preload = &PreloadSlot{Ref: ref, Path: path, For: currentID}
			}
		}
		c.mu.Unlock()
		c.logger.Info("preloaded next track", zap.String("title", ref.Title))
		return
	}

	ref, path, err := c.nextCandidate(ctx)
	if err != nil {
		c.logger.Debug("nothing to preload", zap.Error(err))
		return
	}
	c.mu.Lock()
	if c.preload == nil {
		c.preload = &PreloadSlot{Ref: *ref, Path: path, For: currentID}
	}
	c.mu.Unlock()
	c.logger.Info("preloaded next track", zap.String("title", ref.Title))
}
