// Package poker implements a no-limit hold'em match engine and the hand
// evaluator it uses at showdown.
//
// A match is a sequence of rounds. Every round deals a fresh deck, plays up to
// four betting stages and pays the pot to the best hand; players left without
// chips are out for good, and the match ends when one player holds every chip.
// There are no side pots: an all-in player can win the whole pot.
//
//	s, _ := poker.NewGame(2, poker.WithSeed(42))
//	status, err := s.ApplyAction(1, poker.Action{Kind: poker.Bet, Amount: 10})
//	view := s.View(0) // player 0's redacted view
//
// Hands are classified with Evaluate (five cards) and BestHand (five to seven),
// and ordered with CompareHands.
package poker
