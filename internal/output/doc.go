// Package output names and writes transcription artifacts.
//
// Each processed group produces ocr_<model>_pages_<NN>_<NN>....md in the
// project's image directory. Files are replaced atomically so a rerun of the
// same group overwrites the previous result.
package output
