// Package writers turns reported matches and panel exports into
// serialized output: MatchWriter streams C4/C5 matches as text or jsonl;
// the haplotype-matrix and stats writers in internal/app use plain
// formatting since each has exactly one on-disk shape.
package writers
