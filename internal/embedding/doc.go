// Package embedding turns images into feature vectors with a pretrained
// ONNX vision model and compares them by cosine similarity.
//
// The ONNX Runtime shared library is loaded once per process and reference
// counted across extractors; each extractor owns one inference session that
// is reused for every image until Close.
package embedding
