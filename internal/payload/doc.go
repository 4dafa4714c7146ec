// Package payload resolves a group's page indices to page-NN.png images and
// builds the ordered multimodal request content.
//
// Images appear in the exact order of the group's page list, followed by one
// instruction that repeats that order in text, so the remote model transcribes
// reordered scans correctly. Nothing is cached between groups.
package payload
