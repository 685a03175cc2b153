package profile

import (
	"bufio"
	"fmt"
	"io"
	"math"

	"github.com/hupe1980/tagseek/estimate"
)

const (
	queryHeader = "Sample_file\tGenome_file\tAdjusted_ANI\tEff_cov\tANI_5-95_percentile\tEff_lambda\tLambda_5-95_percentile\tMedian_cov\tMean_cov_geq1\tContainment_ind\tNaive_ANI\tContig_name"

	taxonHeader = "Sample_file\tClade_name\tTaxonomic_abundance\tSequence_abundance\tAdjusted_ANI\tEff_cov\tGscore\tGenomes\tTotal_tags"
)

// formatANI prints an ANI fraction as a percentage capped at 100.
func formatANI(ani float64) string {
	return fmt.Sprintf("%.2f", math.Min(ani*100, 100))
}

// formatLambda prints the estimated λ, or the adjustment status when
// no λ was estimated.
func formatLambda(r *estimate.Result) string {
	if r.Status == estimate.StatusLambda {
		return fmt.Sprintf("%.3f", r.Lambda)
	}
	return r.Status.String()
}

func formatANIInterval(r *estimate.Result) string {
	if !r.HasCI {
		return "NA-NA"
	}
	return fmt.Sprintf("%.2f-%.2f", r.ANILow*100, r.ANIHigh*100)
}

func formatLambdaInterval(r *estimate.Result) string {
	if !r.HasCI {
		return "NA-NA"
	}
	return fmt.Sprintf("%.2f-%.2f", r.LambdaLow, r.LambdaHigh)
}

// WriteQueryTable renders query rows as TSV.
func WriteQueryTable(w io.Writer, rows []*estimate.Result) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintln(bw, queryHeader)
	for _, r := range rows {
		fmt.Fprintf(bw, "%s\t%s\t%s\t%.3f\t%s\t%s\t%s\t%.0f\t%.3f\t%d/%d\t%.2f\t%s\n",
			r.Sample,
			r.Genome,
			formatANI(r.ANI),
			r.EffectiveCov,
			formatANIInterval(r),
			formatLambda(r),
			formatLambdaInterval(r),
			r.MedianCov,
			r.MeanCovGeq1,
			r.SharedTags, r.GenomeTags,
			r.NaiveANI*100,
			r.Contig)
	}
	return bw.Flush()
}

// WriteProfileTable renders per-genome profile rows as TSV.
// estimateUnknown retitles the coverage column to True_cov, matching
// the corrected quantity it then holds.
func WriteProfileTable(w io.Writer, rows []*GenomeRow, estimateUnknown bool) error {
	covHead := "Eff_cov"
	if estimateUnknown {
		covHead = "True_cov"
	}
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "Sample_file\tGenome_file\tTaxonomic_abundance\tSequence_abundance\tAdjusted_ANI\t%s\tANI_5-95_percentile\tEff_lambda\tLambda_5-95_percentile\tMedian_cov\tMean_cov_geq1\tContainment_ind\tNaive_ANI\tkmers_reassigned\tContig_name\n", covHead)
	for _, r := range rows {
		fmt.Fprintf(bw, "%s\t%s\t%.4f\t%.4f\t%s\t%.3f\t%s\t%s\t%s\t%.0f\t%.3f\t%d/%d\t%.2f\t%d\t%s\n",
			r.Sample,
			r.Genome,
			r.TaxAbundance,
			r.SeqAbundance,
			formatANI(r.ANI),
			r.EffectiveCov,
			formatANIInterval(r.Result),
			formatLambda(r.Result),
			formatLambdaInterval(r.Result),
			r.MedianCov,
			r.MeanCovGeq1,
			r.SharedTags, r.GenomeTags,
			r.NaiveANI*100,
			r.TagsLost,
			r.Contig)
	}
	return bw.Flush()
}

// WriteTaxonTable renders aggregated clade rows as TSV.
func WriteTaxonTable(w io.Writer, sample string, rows []*TaxonRow) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintln(bw, taxonHeader)
	for _, r := range rows {
		fmt.Fprintf(bw, "%s\t%s\t%.4f\t%.4f\t%s\t%.3f\t%.2f\t%d\t%d\n",
			sample,
			r.Label,
			r.TaxAbundance,
			r.SeqAbundance,
			formatANI(r.ANI),
			r.EffectiveCov,
			r.Gscore,
			r.Genomes,
			r.TotalTags)
	}
	return bw.Flush()
}
