package engine

import (
	"math/rand"
	"sync"
	"testing"
	"time"

	"seq/internal/arrangement"
	"seq/internal/clip"
	"seq/internal/generator"
	"seq/internal/midi"
	"seq/internal/scheduler"
	"seq/internal/theory"
	"seq/internal/timing"
	"seq/internal/trigger"
)

type fakeSink struct {
	mu   sync.Mutex
	sent [][]byte
}

func (f *fakeSink) Send(b []byte) error                        { return f.record(b) }
func (f *fakeSink) SendAt(b []byte, _ time.Time) error          { return f.record(b) }
func (f *fakeSink) ListDestinations() ([]midi.Destination, error) { return nil, nil }
func (f *fakeSink) record(b []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, append([]byte(nil), b...))
	return nil
}
func (f *fakeSink) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

func newTestDispatcher() (*scheduler.Dispatcher, *fakeSink) {
	clock := timing.NewClock(120)
	sink := &fakeSink{}
	q := scheduler.NewQueue(0)
	d := scheduler.NewDispatcher(q, clock, sink)
	d.SetPeriod(time.Millisecond)
	return d, sink
}

func waitForEvents(sink *fakeSink, n int) bool {
	deadline := time.Now().Add(300 * time.Millisecond)
	for time.Now().Before(deadline) {
		if sink.count() >= n {
			return true
		}
		time.Sleep(2 * time.Millisecond)
	}
	return false
}

func TestEngineRunsGeneratorContinuously(t *testing.T) {
	tr := clip.NewTrack(0, 0)
	tr.GeneratorID = "drone"
	tracks := clip.NewTrackManager()
	tracks.AddTrack(tr)

	drone := generator.NewDrone(0)
	drone.SetParam("change_rate", 1)

	dispatcher, sink := newTestDispatcher()
	go dispatcher.Run()
	defer dispatcher.Stop()

	eng := &Engine{
		Dispatcher: dispatcher,
		Tracks:     tracks,
		Clips:      map[string]*clip.Clip{},
		Generators: map[string]generator.Generator{"drone": drone},
		Key:        theory.NewKey(0, theory.Major),
		rng:        rand.New(rand.NewSource(1)),
	}

	eng.runGenerators(0)
	eng.runGenerators(1)
	eng.runGenerators(2)

	if !waitForEvents(sink, 1) {
		t.Fatal("expected the dispatcher to have sent at least one generator-produced event")
	}
}

func TestEngineTicksClipAndSchedulesNotes(t *testing.T) {
	tr := clip.NewTrack(0, 0)
	tracks := clip.NewTrackManager()
	tracks.AddTrack(tr)

	c, err := clip.NewClip("c1", 4, 0, 4, clip.Loop)
	if err != nil {
		t.Fatal(err)
	}
	c.Notes = []clip.Note{{PositionTick: 0, Pitch: 60, Velocity: 100, DurationTick: 1}}
	c.Trigger()
	c.Launch()
	tr.CurrentClip = c

	dispatcher, sink := newTestDispatcher()
	go dispatcher.Run()
	defer dispatcher.Stop()

	eng := &Engine{
		Dispatcher: dispatcher,
		Tracks:     tracks,
		Clips:      map[string]*clip.Clip{"c1": c},
		rng:        rand.New(rand.NewSource(1)),
	}

	eng.tickClips(1, 1)

	if !waitForEvents(sink, 1) {
		t.Fatal("expected the dispatcher to have sent the clip's note")
	}
}

func TestEngineClipFollowActionQueuesAndLaunchesNextClip(t *testing.T) {
	tr := clip.NewTrack(0, 0)
	tracks := clip.NewTrackManager()
	tracks.AddTrack(tr)
	tr.ClipIDs = []string{"a", "b"}

	a, _ := clip.NewClip("a", 2, 0, 2, clip.OneShot)
	a.Follow = trigger.FollowSpec{Action: trigger.FollowNext}
	b, _ := clip.NewClip("b", 2, 0, 2, clip.OneShot)
	a.Trigger()
	a.Launch()
	tr.CurrentClip = a

	dispatcher, _ := newTestDispatcher()

	eng := &Engine{
		Dispatcher: dispatcher,
		Tracks:     tracks,
		Clips:      map[string]*clip.Clip{"a": a, "b": b},
		Triggers:   trigger.NewQueue(),
		rng:        rand.New(rand.NewSource(1)),
	}

	eng.tickClips(2, 2) // consumes all of clip a's length, ending it
	if a.State != clip.Stopped {
		t.Fatalf("clip a should have ended, state = %v", a.State)
	}
	if eng.Triggers.Len() != 1 {
		t.Fatalf("expected one pending trigger for the follow action, got %d", eng.Triggers.Len())
	}

	eng.pollTriggers(2)
	if tr.CurrentClip != b {
		t.Fatalf("expected follow action to launch clip b, track's current clip = %+v", tr.CurrentClip)
	}
	if b.State != clip.Playing {
		t.Errorf("clip b should be playing after its follow trigger fires, state = %v", b.State)
	}
}

func TestEnginePartTransitionAppliesAssignmentsAndMacros(t *testing.T) {
	tr := clip.NewTrack(0, 0)
	tracks := clip.NewTrackManager()
	tracks.AddTrack(tr)

	x, _ := clip.NewClip("x", 4, 0, 4, clip.Loop)

	clock := timing.NewClock(120)
	clock.Start(time.Now())

	parts := arrangement.NewManager()
	parts.AddPart(&arrangement.Part{
		Name: "A",
		Assignments: []arrangement.TrackAssignment{
			{TrackID: 0, State: arrangement.StateClip, ClipID: "x"},
		},
		Transition: arrangement.TransitionImmediate,
		Macros: []arrangement.MacroAction{
			{Kind: arrangement.MacroSetTempo, TempoBPM: 140},
		},
	})

	eng := &Engine{
		Clock:  clock,
		Tracks: tracks,
		Clips:  map[string]*clip.Clip{"x": x},
		Parts:  parts,
		rng:    rand.New(rand.NewSource(1)),
	}

	parts.TriggerPart("A", 5)
	eng.pollParts(5)

	if tr.CurrentClip != x {
		t.Errorf("expected part transition to assign clip x to track 0, got %+v", tr.CurrentClip)
	}
	if x.State != clip.Playing {
		t.Errorf("assigned clip should be launched, state = %v", x.State)
	}
	if clock.CurrentTempo() != 140 {
		t.Errorf("expected the set_tempo macro to apply, tempo = %v", clock.CurrentTempo())
	}
}

func TestEngineCrossfadeTransitionBeginsGainRamp(t *testing.T) {
	tr := clip.NewTrack(0, 0)
	tracks := clip.NewTrackManager()
	tracks.AddTrack(tr)

	old, _ := clip.NewClip("old", 4, 0, 4, clip.Loop)
	old.Trigger()
	old.Launch()
	tr.CurrentClip = old

	next, _ := clip.NewClip("next", 4, 0, 4, clip.Loop)

	parts := arrangement.NewManager()
	parts.AddPart(&arrangement.Part{
		Name: "X",
		Assignments: []arrangement.TrackAssignment{
			{TrackID: 0, State: arrangement.StateClip, ClipID: "next"},
		},
		Transition:  arrangement.TransitionCrossfade,
		TransitionN: 10,
	})

	eng := &Engine{
		Tracks: tracks,
		Clips:  map[string]*clip.Clip{"old": old, "next": next},
		Parts:  parts,
		rng:    rand.New(rand.NewSource(1)),
	}

	parts.TriggerPart("X", 20)
	eng.pollParts(20)

	if tr.CurrentClip != next {
		t.Fatalf("expected crossfade to assign the incoming clip, got %+v", tr.CurrentClip)
	}
	if tr.CrossfadeOutClip() != old {
		t.Fatalf("expected the outgoing clip to be tracked for crossfade, got %+v", tr.CrossfadeOutClip())
	}
	if outGain, inGain, active := tr.CrossfadeGains(20); !active || outGain != 1 || inGain != 0 {
		t.Errorf("gains at crossfade start = %v,%v,%v, want 1,0,true", outGain, inGain, active)
	}
}

func TestEngineSceneFollowLaunchesNextScene(t *testing.T) {
	tr := clip.NewTrack(0, 0)
	tracks := clip.NewTrackManager()
	tracks.AddTrack(tr)

	scene0 := &arrangement.Scene{Index: 0, LaunchMode: trigger.Bar, Follow: arrangement.FollowTriple{Action: trigger.FollowNext, AfterBars: 1}}
	scene1 := &arrangement.Scene{Index: 1, LaunchMode: trigger.Bar, Assignments: []arrangement.SceneAssignment{
		{TrackID: 0, Slot: arrangement.SlotClip, ClipID: "c1"},
	}}
	scene0.Launch(0)

	eng := &Engine{
		Tracks:   tracks,
		Clips:    map[string]*clip.Clip{},
		Triggers: trigger.NewQueue(),
		Scenes:   []*arrangement.Scene{scene0, scene1},
		rng:      rand.New(rand.NewSource(1)),
	}

	eng.pollSceneFollows(timing.TicksPerBar)

	if eng.Triggers.Len() != 1 {
		t.Errorf("expected scene 1's launch to enqueue one clip trigger, got %d", eng.Triggers.Len())
	}

	if _, stillActive := scene0.FollowBoundary(timing.TicksPerBar); stillActive {
		t.Error("a non-repeating follow action should clear after firing")
	}
}

func TestEngineSongSectionTriggersPartAndTempo(t *testing.T) {
	tr := clip.NewTrack(0, 0)
	tracks := clip.NewTrackManager()
	tracks.AddTrack(tr)

	clock := timing.NewClock(120)
	clock.Start(time.Now())

	parts := arrangement.NewManager()
	parts.AddPart(&arrangement.Part{Name: "A", Transition: arrangement.TransitionImmediate})

	song := arrangement.NewSong([]arrangement.SongSection{
		{PartName: "A", LengthBars: 1, TempoBPM: 90, SceneIndex: -1},
	})

	eng := &Engine{
		Clock:  clock,
		Tracks: tracks,
		Clips:  map[string]*clip.Clip{},
		Parts:  parts,
		Song:   song,
		rng:    rand.New(rand.NewSource(1)),
	}

	eng.applySongSection(10)

	if clock.CurrentTempo() != 90 {
		t.Errorf("expected song section's tempo to apply, got %v", clock.CurrentTempo())
	}
	if _, pending := parts.PendingBoundary(); !pending {
		t.Error("expected the song section's part to become pending")
	}
}
