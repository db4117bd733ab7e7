// Package harness runs gridsync conformance scenarios.
//
// A scenario is a YAML file listing commands, the receipt each one should
// produce, and assertions over the final ledger state:
//
//	name: large_trade
//	description: A purchase of 75% or more bumps the price
//	steps:
//	  - {as: alice, do: register-producer}
//	  - {as: bob, do: register-consumer}
//	  - {as: alice, do: list-energy-units, units: 2000, price: 10}
//	  - as: bob
//	    do: buy-energy
//	    listing: 1
//	    units: 1500
//	    expect: {case: ok, result: {new_price: 11}}
//	assertions:
//	  - {type: listing, listing: 1, expect: {units: 500, price_per_unit: 11}}
//
// Steps run through the real engine on a private in-memory store, with a
// deterministic clock and sequential transaction ids, so the same scenario
// always produces the same trace. After the last step the journal is
// replayed and compared with the materialized state; a divergence fails the
// scenario.
//
// RunWithGolden compares the canonical trace with
// testdata/golden/<name>.golden. Regenerate with:
//
//	go test ./internal/harness -update
package harness
