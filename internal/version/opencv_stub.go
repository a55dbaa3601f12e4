//go:build !gocv
// +build !gocv

package version

const openCV = false
