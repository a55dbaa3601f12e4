// Package flow turns dense optical-flow vector fields into rigid 2D motion
// estimates.
//
// Responsibilities: the VectorField container, the PCA-based
// rotation/translation estimator, and the Provider boundary to the
// external dense-flow algorithm (OpenCV Farneback when built with
// -tags gocv).
//
// Dependency rule: flow depends on nothing else in this module. The pose
// and odometry packages consume its PoseEstimate values.
package flow
