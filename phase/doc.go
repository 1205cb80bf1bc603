// Package phase implements the render phase scheduler that gates when lazy
// units may activate.
//
// Phases are ordered Immediate < AfterPaint < OnInteraction and only move
// forward. Server passes use NewPinned so every decision reflects Immediate;
// client sessions use New and advance as the host signals paint and
// interaction:
//
//	s := phase.New()
//	stop := s.Subscribe(phase.AfterPaint, func(phase.Phase) { unit.Start() })
//	defer stop()
//	s.Advance() // fires the subscriber before returning
package phase
