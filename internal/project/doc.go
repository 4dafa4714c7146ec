// Package project derives a letter project's file layout from its source PDF.
//
// For letters.pdf the page images live in temp_letters/ beside the PDF, the
// group plan defaults to pages_letters.txt, and transcriptions are written
// into the image directory. A flock-based advisory lock keeps two runs from
// writing the same project concurrently.
package project
