// Command lottrace is the operator CLI for the lot tracking core: decoding
// identifiers, validating routing inputs, driving the lot lifecycle, walking
// lineage, and administering sequence counters and BOMs.
package main
