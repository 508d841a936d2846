package main

// release is the version of abpgen, compared against the minToolVersion of a
// template corpus.
const release = "v0.1.0"
