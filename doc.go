// Package vibrio provides a native Go library for managing the lifecycle of a
// local Vibrio server and calling its HTTP API to compute osu! beatmap
// difficulty and performance attributes.
//
// The core functionality centers around the Lazer type, which spawns the
// server executable on an unused port, waits for it to become ready, and
// exposes the typed API operations:
//
//	lazer, err := vibrio.New(vibrio.WithExecutableDir("./lib"))
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	ctx := context.Background()
//	if err := lazer.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer lazer.Stop()
//
//	attrs, err := lazer.CalculateDifficulty(ctx, vibrio.DifficultyRequest{
//	    BeatmapID: 1001682,
//	    Mods:      []vibrio.Mod{vibrio.ModDoubleTime},
//	})
//	fmt.Printf("star rating: %.2f, max combo: %d\n", attrs.StarRating, attrs.MaxCombo)
//
// # Concurrent Operations
//
// The LazerAsync type is provided as a convenience for applications that want
// multiple calculations in flight at once. It's particularly useful for:
//
//   - Batch recalculation of large score sets
//   - Services answering difficulty queries for many users
//   - Benchmarks comparing mod combinations
//
// If your application already manages its own goroutines, you may not need
// LazerAsync: every Lazer method is context-aware and safe to call from
// multiple goroutines once the server is running. Start and Stop are the only
// operations that must not race with each other.
//
//	async := lazer.Async(vibrio.WithInFlight(8))
//	for _, id := range beatmapIDs {
//	    results = append(results, async.CalculateDifficulty(ctx, vibrio.DifficultyRequest{BeatmapID: id}))
//	}
//
// # Design Philosophy
//
// This library prioritizes:
//
//   - Exactly-once process teardown, including descendant processes
//   - Explicit scoped ownership (defer Stop) instead of global exit hooks
//   - Context-aware operations with a bounded startup window
//   - Type safety (no string-based status or mod codes)
//
// The server executable itself is an opaque collaborator; this package never
// reimplements its scoring logic, it only manages the process and speaks its
// HTTP API.
package vibrio
