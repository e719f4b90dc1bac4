// Package loadgen drives the loan coordinator with randomized lending and reservation traffic
// at a fixed rate. Business rejections are counted separately from failures, a healthy run has
// many rejections and zero errors.
package loadgen
