// SPDX-License-Identifier: MIT

package eigen

// RoundRobin exposes the column pairing schedule to tests.
var RoundRobin = roundRobin
