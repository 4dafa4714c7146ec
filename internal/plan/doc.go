// Package plan loads group plans: text files holding one page-range string per
// letter.
//
// Line order is processing order. Blank lines are ignored and never consume a
// group index, so skip lists stay stable when an operator adds spacing to the
// file. A malformed line fails the whole load before any remote call is made.
package plan
