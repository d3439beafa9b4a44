// Package harness runs scripted play sessions against the economy and
// checks what they produce.
//
// # Scenario Format
//
// Scenarios are YAML files:
//
//	name: first_purchase
//	description: "Clicking up to the first auto-clicker level"
//	steps:
//	  - do: click
//	    times: 20
//	  - do: buy
//	    item: agentic_clicker
//	  - do: buy
//	    item: dark_mode
//	    expect: insufficient_funds
//	  - do: tick
//	    times: 100
//	assertions:
//	  - type: trace_contains
//	    kind: achievement_earned
//	    id: first_purchase
//	  - type: final_state
//	    expect: { balance: 100, upgrade_level: 1 }
//
// # Steps
//
//   - click: manual clicks (times, default 1)
//   - tick: auto-clicker ticks; fails with "idle" when the auto-clicker is off
//   - buy: shop purchase of item
//   - lore: lore unlock of item
//   - hover_name, click_name: hero-name interactions
//   - theme: select the theme named by item; toggle_theme flips dark/light
//   - volume: set the music volume to value
//   - reset: clear all data
//   - reload: drop the session and load a new one from the same store
//
// Every step expects "ok" unless expect names another outcome: one of
// insufficient_funds, already_owned, max_level, locked, unknown,
// in_progress, idle.
//
// # Assertion Types
//
//   - trace_contains: an event of kind (and id, if set) was raised
//   - trace_order: events, written "kind id", were raised in this order
//   - trace_count: exactly count events of kind (and id, if set)
//   - final_state: subset match of expect against the final game.Status
//
// # Deterministic Testing
//
// Every scenario runs over a fresh in-memory store with a fake clock (the
// deduction animation completes instantly), manual tickers (the auto-clicker
// only ticks on tick steps) and sequential transaction ids. Events share one
// logical clock across reloads, so the trace is identical on every run and
// can be compared with a golden file.
package harness
