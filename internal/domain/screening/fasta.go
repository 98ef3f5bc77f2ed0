package screening

import "strings"

// SequenceStats are pre-flight numbers over the raw submitted text, computed
// locally before any engine call.
type SequenceStats struct {
	Records int `json:"records"`
	Symbols int `json:"symbols"`
}

// CountSequence counts FASTA records and recognized nucleotide symbols
// (ACGT, case-insensitive) in the submitted text. Bare sequence text without
// a header counts as a single record.
func CountSequence(text string) SequenceStats {
	var st SequenceStats
	sawData := false
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, ">") {
			st.Records++
			continue
		}
		sawData = true
		for _, c := range line {
			switch c {
			case 'A', 'C', 'G', 'T', 'a', 'c', 'g', 't':
				st.Symbols++
			}
		}
	}
	if st.Records == 0 && sawData {
		st.Records = 1
	}
	return st
}
