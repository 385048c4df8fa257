// Package engine implements the generator/control thread spec §5
// describes: the loop that periodically re-invokes each generator, ticks
// every track's current clip, and polls/applies the trigger queue and the
// part/scene/song managers, translating their state changes into commands
// submitted to the scheduler's single-writer Dispatcher. Grounded on the
// teacher's own RealtimePlayer playback loop (player/realtime.go), which
// periodically advances position and fires the next due chord/MIDI event
// from a single driving goroutine; generalized here from one linear
// progression into the generator/clip/trigger/arrangement object graph
// config.Build assembles.
package engine

import (
	"math/rand"
	"time"

	"seq/internal/arrangement"
	"seq/internal/clip"
	"seq/internal/config"
	"seq/internal/diag"
	"seq/internal/generator"
	"seq/internal/midi"
	"seq/internal/scheduler"
	"seq/internal/theory"
	"seq/internal/timing"
	"seq/internal/trigger"
)

// Engine drives one song's live playback: it owns no MIDI state directly
// (the Dispatcher does) but knows how to advance every other subsystem and
// feed the results to the Dispatcher via Submit.
type Engine struct {
	Clock      *timing.Clock
	Dispatcher *scheduler.Dispatcher

	Tracks     *clip.TrackManager
	Clips      map[string]*clip.Clip
	Generators map[string]generator.Generator
	Key        theory.Key

	Triggers *trigger.Queue
	Parts    *arrangement.Manager
	Scenes   []*arrangement.Scene
	Song     *arrangement.Song

	Diag *diag.Channel

	rng      *rand.Rand
	lastTick uint64
}

// New builds an Engine over an already-assembled Runtime, driving MIDI
// output through dispatcher and wall/tick conversion through clock. diagCh
// may be nil if the caller doesn't want runtime diagnostics posted.
func New(rt *config.Runtime, clock *timing.Clock, dispatcher *scheduler.Dispatcher, diagCh *diag.Channel) *Engine {
	return &Engine{
		Clock:      clock,
		Dispatcher: dispatcher,
		Tracks:     rt.Tracks,
		Clips:      rt.Clips,
		Generators: rt.Generators,
		Key:        rt.Key,
		Triggers:   trigger.NewQueue(),
		Parts:      rt.Parts,
		Scenes:     rt.Scenes,
		Song:       rt.Song,
		Diag:       diagCh,
		rng:        rand.New(rand.NewSource(7)),
	}
}

// Start begins transport and launches every track's directly-assigned
// clip (the ones config.Build attached as Track.CurrentClip outside of any
// part/scene), so a song with no parts or controller input still plays
// rather than sitting silent waiting for a trigger.
func (e *Engine) Start(now time.Time) {
	e.Clock.Start(now)
	e.lastTick = 0
	for _, tr := range e.Tracks.Tracks {
		if tr.CurrentClip != nil {
			tr.CurrentClip.Trigger()
			tr.CurrentClip.Launch()
		}
	}
	if e.Song != nil {
		e.applySongSection(0)
	}
}

// Advance is the single call site meant to be driven periodically (from a
// ticker goroutine distinct from the Dispatcher's own, per spec §5's
// separate Generator and Dispatch threads): it brings every subsystem up
// to date with the current tick and submits whatever new events that
// produces.
func (e *Engine) Advance(now time.Time) {
	tick := e.Clock.NowTick(now)
	if tick < e.lastTick {
		return
	}
	dt := tick - e.lastTick
	e.lastTick = tick

	e.tickClips(tick, dt)
	e.runGenerators(tick)
	e.pollTriggers(tick)
	e.pollParts(tick)
	e.pollSceneFollows(tick)
	e.advanceSong(dt, tick)
}

// tickClips advances every track's current (and, mid-crossfade, outgoing)
// clip by dt ticks and schedules whatever notes became due.
func (e *Engine) tickClips(tick, dt uint64) {
	anySoloed := e.Tracks.AnySoloed()
	for _, tr := range e.Tracks.Tracks {
		outGain, inGain, crossfading := tr.CrossfadeGains(tick)

		if tr.CurrentClip != nil {
			gain := 1.0
			if crossfading {
				gain = inGain
			}
			due, ended := tr.CurrentClip.Tick(dt)
			e.scheduleClipNotes(tr, due, tick, gain, anySoloed)
			if ended {
				e.onClipEnded(tr, tr.CurrentClip, tick)
			}
		}

		if out := tr.CrossfadeOutClip(); out != nil {
			due, _ := out.Tick(dt)
			e.scheduleClipNotes(tr, due, tick, outGain, anySoloed)
			if done := tr.EndCrossfadeIfDue(tick); done != nil {
				done.RequestStop()
			}
		}
	}
}

// scheduleClipNotes is a note's due tick is stamped at the engine's current
// tick: clip.Tick's dt is driven at the engine's own poll granularity
// (well under one tick at typical tempos), so this loses no meaningful
// precision over stamping each note's exact clip-relative offset.
func (e *Engine) scheduleClipNotes(tr *clip.Track, notes []clip.Note, tick uint64, gain float64, anySoloed bool) {
	for _, n := range notes {
		ev := midi.NoteOn(tick, tr.Channel, n.Pitch, n.Velocity, n.DurationTick)
		processed, ok := tr.ProcessWithGain(ev, anySoloed, gain)
		if !ok {
			continue
		}
		trackID := tr.Index
		e.Dispatcher.Submit(func(q *scheduler.Queue) {
			scheduler.ScheduleNoteWithOff(q, trackID, processed)
		})
	}
}

// onClipEnded resolves the ending clip's follow action (spec §4.6) and, if
// it selects a successor, enqueues an immediate trigger for it.
func (e *Engine) onClipEnded(tr *clip.Track, c *clip.Clip, tick uint64) {
	if c.Follow.Action == trigger.FollowNone {
		return
	}
	idx := indexOfString(tr.ClipIDs, c.ID)
	nextID, ok := c.Follow.Resolve(tr.ClipIDs, idx, e.rng)
	if !ok || nextID == "" {
		return
	}
	e.Triggers.Enqueue(trigger.PendingTrigger{
		Ref:            trigger.ClipOrSceneRef{TrackID: tr.Index, ClipID: nextID},
		Quantize:       trigger.Immediate,
		EnqueuedAtTick: tick,
	})
}

func indexOfString(ids []string, id string) int {
	for i, s := range ids {
		if s == id {
			return i
		}
	}
	return -1
}

// runGenerators re-invokes every generator with the current tick; each
// generator is itself responsible for lazily catching up its internal
// nextTick state since the previous call (spec §4.4).
func (e *Engine) runGenerators(tick uint64) {
	anySoloed := e.Tracks.AnySoloed()
	ctx := generator.Context{
		NowTick:     tick,
		Key:         &e.Key,
		TempoBPM:    e.Clock.CurrentTempo(),
		BarsElapsed: int(tick / timing.TicksPerBar),
		PPQN:        timing.PPQN,
	}
	for name, gen := range e.Generators {
		events := gen.Generate(ctx)
		if len(events) == 0 {
			continue
		}
		for _, tr := range e.Tracks.Tracks {
			if tr.GeneratorID != name {
				continue
			}
			gain := 1.0
			if _, inGain, crossfading := tr.CrossfadeGains(tick); crossfading {
				gain = inGain
			}
			for _, ev := range events {
				processed, ok := tr.ProcessWithGain(ev, anySoloed, gain)
				if !ok {
					continue
				}
				trackID := tr.Index
				e.Dispatcher.Submit(func(q *scheduler.Queue) {
					scheduler.ScheduleNoteWithOff(q, trackID, processed)
				})
			}
		}
	}
}

// pollTriggers applies every pending clip/scene trigger whose boundary has
// been reached.
func (e *Engine) pollTriggers(tick uint64) {
	for _, p := range e.Triggers.Poll(tick) {
		if p.Ref.IsScene {
			e.launchScene(tick, p.Ref.SceneIdx)
			continue
		}
		e.launchClipOnTrack(p.Ref.TrackID, p.Ref.ClipID)
	}
}

func (e *Engine) launchClipOnTrack(trackID int, clipID string) {
	if trackID < 0 || trackID >= len(e.Tracks.Tracks) {
		return
	}
	c, ok := e.Clips[clipID]
	if !ok {
		return
	}
	c.Trigger()
	c.Launch()
	e.Tracks.Tracks[trackID].CurrentClip = c
}

// launchScene marks the scene launched (starting its follow-action clock)
// and enqueues a quantized clip trigger for every non-Hold slot; Generator
// and Stop slots take effect immediately since they have no clip-trigger
// equivalent to quantize against.
func (e *Engine) launchScene(tick uint64, idx int) {
	if idx < 0 || idx >= len(e.Scenes) {
		return
	}
	scn := e.Scenes[idx]
	scn.Launch(tick)
	for _, trig := range scn.NonHoldTriggers(tick) {
		e.Triggers.Enqueue(trig)
	}
	e.applySceneAssignments(scn)
}

func (e *Engine) applySceneAssignments(scn *arrangement.Scene) {
	for _, a := range scn.Assignments {
		if a.TrackID < 0 || a.TrackID >= len(e.Tracks.Tracks) {
			continue
		}
		tr := e.Tracks.Tracks[a.TrackID]
		switch a.Slot {
		case arrangement.SlotGenerator:
			tr.GeneratorID = a.GeneratorName
		case arrangement.SlotStop:
			if tr.CurrentClip != nil {
				tr.CurrentClip.RequestStop()
			}
		}
	}
}

// pollSceneFollows fires any scene whose follow-action boundary has
// passed, resolving which scene (if any) plays next.
func (e *Engine) pollSceneFollows(tick uint64) {
	for _, scn := range e.Scenes {
		boundary, ok := scn.FollowBoundary(timing.TicksPerBar)
		if !ok || tick < boundary {
			continue
		}
		if next, resolved := scn.ResolveFollow(len(e.Scenes), e.rng); resolved {
			e.launchScene(tick, next)
		}
		if scn.Follow.Repeat {
			scn.Launch(tick)
		} else {
			scn.ClearFollow()
		}
	}
}

// pollParts applies the pending part transition, if its boundary has
// passed.
func (e *Engine) pollParts(tick uint64) {
	p, ok := e.Parts.Poll(tick)
	if !ok {
		return
	}
	e.applyPart(tick, p)
}

func (e *Engine) applyPart(tick uint64, p *arrangement.Part) {
	for _, a := range p.Assignments {
		if a.TrackID < 0 || a.TrackID >= len(e.Tracks.Tracks) {
			continue
		}
		tr := e.Tracks.Tracks[a.TrackID]
		switch a.State {
		case arrangement.StateClip:
			c, ok := e.Clips[a.ClipID]
			if !ok {
				continue
			}
			if p.Transition == arrangement.TransitionCrossfade && tr.CurrentClip != nil {
				tr.BeginCrossfade(tr.CurrentClip, tick, uint64(p.TransitionN))
			}
			c.Trigger()
			c.Launch()
			tr.CurrentClip = c
		case arrangement.StateGenerator:
			tr.GeneratorID = a.GeneratorName
		case arrangement.StateStop:
			if tr.CurrentClip != nil {
				tr.CurrentClip.RequestStop()
			}
		case arrangement.StateEmpty:
			tr.CurrentClip = nil
			tr.GeneratorID = ""
		case arrangement.StateHold:
			// leave track state untouched
		}
	}
	e.applyMacros(tick, p.Macros)
}

func (e *Engine) applyMacros(tick uint64, macros []arrangement.MacroAction) {
	for _, m := range macros {
		switch m.Kind {
		case arrangement.MacroSetTempo:
			e.Clock.SetTempoAtTick(tick, m.TempoBPM)
		case arrangement.MacroSetParam:
			if gen, ok := e.generatorForTrack(m.TrackID); ok {
				gen.SetParam(m.ParamName, m.ParamVal)
			}
		case arrangement.MacroMuteToggle:
			e.Tracks.ToggleMute(m.TrackID)
		case arrangement.MacroSoloToggle:
			e.Tracks.ToggleSolo(m.TrackID)
		case arrangement.MacroSendMIDI:
			if err := e.Dispatcher.SendRaw(m.RawMIDI); err != nil && e.Diag != nil {
				e.Diag.Post(diag.RuntimeRecoverable, err.Error(), tick)
			}
		}
	}
}

func (e *Engine) generatorForTrack(trackID int) (generator.Generator, bool) {
	if trackID < 0 || trackID >= len(e.Tracks.Tracks) {
		return nil, false
	}
	gen, ok := e.Generators[e.Tracks.Tracks[trackID].GeneratorID]
	return gen, ok
}

// advanceSong moves the song timeline forward and applies whatever new
// section it crosses into.
func (e *Engine) advanceSong(dt, tick uint64) {
	if e.Song == nil {
		return
	}
	if _, crossed := e.Song.Advance(dt, timing.TicksPerBar); crossed {
		e.applySongSection(tick)
	}
}

func (e *Engine) applySongSection(tick uint64) {
	sec, ok := e.Song.CurrentSection()
	if !ok {
		return
	}
	if sec.TempoBPM > 0 {
		e.Clock.SetTempoAtTick(tick, sec.TempoBPM)
	}
	if sec.PartName != "" {
		e.Parts.TriggerPart(sec.PartName, tick)
	}
	if sec.SceneIndex >= 0 {
		e.launchScene(tick, sec.SceneIndex)
	}
}
