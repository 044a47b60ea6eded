// Package harness runs YAML regression scenarios against rule sets.
//
// # Scenario Format
//
// A scenario file groups render cases that share preferences:
//
//	name: nb_clearspeak
//	description: "Norwegian ClearSpeak basics"
//	rules_dir: ../rules        # optional, relative to the scenario file
//	output: speech             # default output of every case
//	preferences:
//	  Language: nb
//	cases:
//	  - name: times
//	    mathml: <math><mn>2</mn><mo>×</mo><mn>3</mn></math>
//	    expect: "2 ganger 3"
//	    assertions:
//	      - type: trace_contains
//	        rule: operator
//	        path: /math/mo[1]
//	  - name: unknown locale
//	    mathml: <math><mi>x</mi></math>
//	    preferences: {Language: fr}
//	    error: UNSUPPORTED_LOCALE
//
// Case preferences are applied on top of the scenario preferences. A case
// either expects an output, expects an error code, or only records its
// output for golden comparison.
//
// # Assertion Types
//
//   - trace_contains: a rule was applied, optionally at a given path
//   - trace_order: rules were first applied in the given order
//   - trace_count: a rule was applied exactly N times
//   - output_matches: the output matches a regular expression
//
// # Deterministic Testing
//
// Every case runs in a fresh session with a fixed session ID, so outputs
// and traces are identical across runs. Snapshot serializes a result with
// ir.MarshalCanonical for golden file comparison.
//
// # Usage
//
//	scenario, err := harness.LoadScenario("testdata/scenarios/nb.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	result, err := harness.Run(scenario)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for _, msg := range result.Errors {
//	    log.Println(msg)
//	}
package harness
