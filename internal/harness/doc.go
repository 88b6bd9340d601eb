// Package harness runs split conformance scenarios.
//
// A scenario names a query document and what splitting it must produce:
// either a residual document and fragment list, or an error code.
//
// # Scenario Format
//
// Scenarios are YAML files with the following structure:
//
//	name: nested_partial_absorption
//	description: "Operator siblings are absorbed, plain siblings stay"
//	query:
//	  a:
//	    b: {$eq: 22}
//	    c: 44
//	residual:
//	  a: {c: 44}
//	fragments:
//	  - "and bq_jdoc #> '{a,b}' = '22'::jsonb"
//
// or, for a failing query:
//
//	name: unknown_operator
//	description: "Unknown operator tokens are rejected"
//	query:
//	  a: {$foo: 1}
//	error: UNSUPPORTED_OPERATOR
//
// Key order in query and residual is preserved. YAML numbers are normalized
// (1.50 reads as 1.5); expected fragments must use the normalized text.
// max_depth optionally lowers the splitter's nesting limit.
//
// # Checks
//
// Beyond comparing against the expectation, every successful split is checked
// for internal consistency: one typed comparison per fragment, and a
// predicate tree that passes queryir.Validate.
//
// # Usage
//
//	scenario, err := harness.LoadScenario("testdata/scenarios/nested.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	result, err := harness.Run(scenario)
//	if !result.Pass {
//	    for _, msg := range result.Errors {
//	        log.Println(msg)
//	    }
//	}
package harness
