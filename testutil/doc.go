// Package testutil provides testing utilities for tagseek.
//
// This package is intended for use in tests and benchmarks only.
// It provides helpers for building deterministic synthetic genomes
// with planted restriction windows, simulating shotgun reads, and
// writing FASTA/FASTQ fixtures to disk.
//
// # Synthetic Genomes
//
//	rng := testutil.NewRNG(seed)
//	genome := rng.PlantedGenome(60, 40) // 60 tag windows, 40 bp apart
//	reads := rng.Reads(genome, 400, 100)
//
// # Fixtures
//
//	testutil.WriteFasta(t, path, &seqio.Record{Name: "g1", Seq: genome})
//	testutil.WriteFastq(t, path, recs...)
package testutil
