// Command seq is the core CLI entry point (spec §6): it loads a song
// document, builds the runtime object graph, and drives playback,
// export, or one-shot device/clock diagnostics. The hand-rolled flag
// parser below follows the teacher's own main.go (parseArgs: a small
// switch over recognized flags, no flag.FlagSet or cobra), so cobra
// (present in other_examples/icco-genidi) is not wired in here.
package main

import (
	"fmt"
	"os"
	"strconv"
	"time"

	_ "gitlab.com/gomidi/midi/v2/drivers/rtmididrv"
	"golang.org/x/term"

	"seq/internal/clip"
	"seq/internal/config"
	"seq/internal/diag"
	"seq/internal/engine"
	"seq/internal/iodevice"
	"seq/internal/midi"
	"seq/internal/midifile"
	"seq/internal/scheduler"
	"seq/internal/statusview"
	"seq/internal/timing"
)

// advancePeriod is how often the generator/control thread (internal/engine)
// re-polls clips, generators, triggers, and the part/scene/song managers —
// distinct from the dispatcher's own tighter period, matching spec §5's
// separate Generator and Dispatch threads.
const advancePeriod = 5 * time.Millisecond

func main() {
	args := os.Args[1:]
	if len(args) < 1 {
		printUsage()
		os.Exit(1)
	}

	command := args[0]
	rest := args[1:]

	var err error
	switch command {
	case "play":
		err = runPlay(rest)
	case "export":
		err = runExport(rest)
	case "validate":
		err = runValidate(rest)
	case "list-midi", "--list-midi":
		err = runListMidi()
	case "list-sources", "--list-sources":
		err = runListSources()
	case "test-note", "--test-note":
		err = runTestNote(rest)
	case "test-clock", "--test-clock":
		err = runTestClock(rest)
	case "monitor", "--monitor":
		err = runMonitor(rest)
	case "--help", "-h", "help":
		printUsage()
		return
	default:
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "seq: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("seq — live-performance algorithmic MIDI sequencer")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  seq play <song.yaml> [--midi-out <index>]    Play a song document in real time")
	fmt.Println("  seq export <song.yaml> [out.mid]              Export a recorded clip set to a Standard MIDI File")
	fmt.Println("  seq validate <song.yaml>                      Validate a song document and exit")
	fmt.Println("  seq list-midi                                 List MIDI output destinations")
	fmt.Println("  seq list-sources                              List MIDI input sources")
	fmt.Println("  seq test-note <dest>                          Send a single test note to an output")
	fmt.Println("  seq test-clock <dest> <bpm>                   Send MIDI clock at the given tempo")
	fmt.Println("  seq monitor <source>                          Print inbound MIDI messages from a source")
	fmt.Println()
	fmt.Println("Exit code 0 on clean termination; non-zero on configuration error,")
	fmt.Println("MIDI device unavailable, or unrecoverable runtime failure (spec §6).")
}

func loadRuntime(path string) (*config.Song, *config.Runtime, error) {
	song, err := config.LoadSong(path)
	if err != nil {
		return nil, nil, err
	}
	rt, err := config.Build(song)
	if err != nil {
		return nil, nil, err
	}
	return song, rt, nil
}

func runValidate(args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("validate requires a song document path")
	}
	_, _, err := loadRuntime(args[0])
	if err != nil {
		return err
	}
	fmt.Println("ok")
	return nil
}

func runListMidi() error {
	for _, d := range iodevice.ListOutputs() {
		fmt.Printf("%d: %s\n", d.Index, d.Name)
	}
	return nil
}

func runListSources() error {
	for _, d := range iodevice.ListInputs() {
		fmt.Printf("%d: %s\n", d.Index, d.Name)
	}
	return nil
}

func runTestNote(args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("test-note requires a destination index")
	}
	idx, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("invalid destination index %q: %w", args[0], err)
	}
	sink, err := iodevice.OpenSink(idx)
	if err != nil {
		return err
	}
	defer sink.Close()

	ev := midi.NoteOn(0, 0, 60, 100, 0)
	if err := sink.Send([]byte(ev.Message())); err != nil {
		return err
	}
	time.Sleep(500 * time.Millisecond)
	off := midi.NoteOff(0, 0, 60)
	return sink.Send([]byte(off.Message()))
}

func runTestClock(args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("test-clock requires <dest> <bpm>")
	}
	idx, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("invalid destination index %q: %w", args[0], err)
	}
	bpm, err := strconv.ParseFloat(args[1], 64)
	if err != nil {
		return fmt.Errorf("invalid bpm %q: %w", args[1], err)
	}
	sink, err := iodevice.OpenSink(idx)
	if err != nil {
		return err
	}
	defer sink.Close()

	clock := timing.NewClock(bpm)
	emitter := timing.NewClockEmitter(clock, sink)
	now := time.Now()
	clock.Start(now)
	if err := emitter.EmitStart(now); err != nil {
		return err
	}
	fmt.Printf("sending MIDI clock at %.1f bpm on destination %d (ctrl+c to stop)\n", bpm, idx)

	ticker := time.NewTicker(time.Millisecond)
	defer ticker.Stop()
	for t := range ticker.C {
		if err := emitter.MaybeEmitPulse(t); err != nil {
			return err
		}
	}
	return nil
}

func runMonitor(args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("monitor requires a source index")
	}
	idx, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("invalid source index %q: %w", args[0], err)
	}
	src, err := iodevice.OpenSource(idx)
	if err != nil {
		return err
	}
	defer src.Close()

	if !isInteractiveTTY() {
		return monitorPlain(src)
	}

	diagCh := diag.NewChannel()
	start := time.Now()
	snap := func() statusview.Snapshot {
		msgs, _ := src.Poll()
		for _, m := range msgs {
			diagCh.Post(diag.RuntimeRecoverable, fmt.Sprintf("kind=%d ch=%d d1=%d d2=%d", m.Kind, m.Channel, m.Data1, m.Data2), 0)
		}
		return statusview.Snapshot{
			Transport: "monitoring",
			SongName:  fmt.Sprintf("source %d", idx),
			Tick:      uint64(time.Since(start) / time.Millisecond),
		}
	}
	return statusview.Run(statusview.New(diagCh, snap))
}

// isInteractiveTTY mirrors the teacher's own TTY check in
// player/fluidsynth.go (term.IsTerminal(os.Stdin.Fd())) before deciding
// whether to attach the bubbletea status view at all.
func isInteractiveTTY() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

// monitorPlain is the non-TTY fallback (piped stdout, CI, cron), printing
// one line per inbound message instead of attaching the status view —
// the same legacy-display fallback the teacher takes in
// player/fluidsynth.go:playWithLegacyDisplay.
func monitorPlain(src *iodevice.RealtimeSource) error {
	for {
		msgs, err := src.Poll()
		if err != nil {
			return err
		}
		for _, m := range msgs {
			fmt.Printf("kind=%d ch=%d d1=%d d2=%d\n", m.Kind, m.Channel, m.Data1, m.Data2)
		}
		time.Sleep(20 * time.Millisecond)
	}
}

func runExport(args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("export requires a song document path")
	}
	_, rt, err := loadRuntime(args[0])
	if err != nil {
		return err
	}

	outPath := "out.mid"
	if len(args) >= 2 {
		outPath = args[1]
	}

	var tracks []midifile.TrackEvents
	for _, tr := range rt.Tracks.Tracks {
		if tr.CurrentClip == nil {
			continue
		}
		tracks = append(tracks, midifile.TrackEvents{
			Name:    fmt.Sprintf("track-%d", tr.Index),
			Channel: tr.Channel,
			Events:  renderClip(tr.CurrentClip),
		})
	}

	f, err := os.Create(outPath)
	if err != nil {
		return err
	}
	defer f.Close()

	tempos := []midifile.TempoChange{{Tick: 0, BPM: rt.Tempo}}
	sigs := []midifile.TimeSignature{{Tick: 0, Numerator: 4, Denominator: 4}}
	if err := midifile.Export(f, midifile.Type1, tracks, tempos, sigs); err != nil {
		return err
	}
	fmt.Printf("exported %d track(s) to %s\n", len(tracks), outPath)
	return nil
}

// renderClip materializes one full pass of a clip's static note list as
// scheduler-style MidiEvents, for export purposes (no live generator
// output; generator-backed clips are exported as silence, matching the
// teacher's own distinction between a fixed progression and live
// accompaniment it never tried to "print" either).
func renderClip(c *clip.Clip) []midi.MidiEvent {
	var out []midi.MidiEvent
	for _, n := range c.Notes {
		out = append(out, midi.NoteOn(n.PositionTick, n.Channel, n.Pitch, n.Velocity, n.DurationTick))
		if n.DurationTick > 0 {
			out = append(out, midi.NoteOff(n.PositionTick+n.DurationTick, n.Channel, n.Pitch))
		}
	}
	return out
}

func runPlay(args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("play requires a song document path")
	}
	song, rt, err := loadRuntime(args[0])
	if err != nil {
		return err
	}

	outIdx := 0
	for i := 0; i < len(args)-1; i++ {
		if args[i] == "--midi-out" {
			outIdx, _ = strconv.Atoi(args[i+1])
		}
	}

	sink, err := iodevice.OpenSink(outIdx)
	if err != nil {
		return fmt.Errorf("opening MIDI output: %w", err)
	}
	defer sink.Close()

	clock := timing.NewClock(rt.Tempo)
	queue := scheduler.NewQueue(scheduler.DefaultQueueCap)
	dispatcher := scheduler.NewDispatcher(queue, clock, sink)

	diagCh := diag.NewChannel()
	dispatcher.OnDispatchError = func(err error) {
		diagCh.Post(diag.Resource, err.Error(), clock.NowTick(time.Now()))
	}

	go dispatcher.Run()
	defer dispatcher.Stop()

	eng := engine.New(rt, clock, dispatcher, diagCh)
	eng.Start(time.Now())

	advanceTicker := time.NewTicker(advancePeriod)
	defer advanceTicker.Stop()
	stopAdvance := make(chan struct{})
	defer close(stopAdvance)
	go func() {
		for {
			select {
			case <-stopAdvance:
				return
			case now := <-advanceTicker.C:
				eng.Advance(now)
			}
		}
	}()

	snap := func() statusview.Snapshot {
		now := clock.NowTick(time.Now())
		return statusview.Snapshot{
			Tick:      now,
			BarNum:    int(now / timing.TicksPerBar),
			BeatNum:   int((now % timing.TicksPerBar) / timing.PPQN),
			TempoBPM:  clock.CurrentTempo(),
			Transport: transportLabel(clock.Running()),
			SongName:  song.Name,
		}
	}

	if !isInteractiveTTY() {
		return playPlain(clock, snap)
	}
	return statusview.Run(statusview.New(diagCh, snap))
}

// playPlain is the non-TTY fallback for `seq play` (piped stdout, run
// under a process supervisor with no controlling terminal): print a
// position line periodically instead of attaching the bubbletea status
// view, same as monitorPlain above.
func playPlain(clock *timing.Clock, snap statusview.SnapshotFunc) error {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for range ticker.C {
		s := snap()
		fmt.Printf("%s  tempo=%.1f  bar=%d beat=%d  tick=%d\n", s.Transport, s.TempoBPM, s.BarNum, s.BeatNum, s.Tick)
		if !clock.Running() {
			return nil
		}
	}
	return nil
}

func transportLabel(running bool) string {
	if running {
		return "playing"
	}
	return "stopped"
}
