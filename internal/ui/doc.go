// Package ui implements the interactive terminal interface using bubbletea's Elm architecture.
//
// The TUI walks one user's collection through these views:
//  1. [ReleaseListView] : Browse releases already stored for the user
//  2. [DetailView] : Inspect a single release
//  3. [ConfirmView] : Confirm a synchronization run
//  4. [SyncView] : Follow the run's progress updates
//  5. [ResultView] : Show inserted row counts or the failing stage
//
// Progress flows through a buffered channel handed to the engine's Synchronize.
// The channel is closed once Synchronize has returned, after which the outcome is read from a second channel.
package ui
