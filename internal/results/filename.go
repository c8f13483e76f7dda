package results

import (
	"fmt"
	"math"
	"path/filepath"
	"regexp"
	"strconv"

	"github.com/nvandessel/contagion/internal/contagion"
)

// FileInfo is the run identity encoded in a result file name.
type FileInfo struct {
	NetworkType string
	Params      contagion.Params
	Version     string
}

var fileNameRE = regexp.MustCompile(`^contagion_(.+)_p(\d+)_d(\d+)_t(\d+)_ver_(.+)\.json$`)

func scaled(v float64) string {
	return fmt.Sprintf("%02d", int(math.Round(v*100)))
}

// FileName returns the conventional result name
// contagion_<type>_p<pp>_d<dd>_t<tt>_ver_<version>.json, with parameters
// scaled by 100 and zero-padded to two digits.
func FileName(networkType string, p contagion.Params, version string) string {
	return fmt.Sprintf("contagion_%s_p%s_d%s_t%s_ver_%s.json",
		networkType, scaled(p.Probability), scaled(p.Dose), scaled(p.Threshold), version)
}

// ParseFileName recovers the run identity from a result file name or path.
func ParseFileName(name string) (FileInfo, error) {
	m := fileNameRE.FindStringSubmatch(filepath.Base(name))
	if m == nil {
		return FileInfo{}, fmt.Errorf("%q is not a result file name: %w", name, ErrFormat)
	}
	unscale := func(s string) float64 {
		n, _ := strconv.Atoi(s)
		return float64(n) / 100
	}
	return FileInfo{
		NetworkType: m[1],
		Params: contagion.Params{
			Probability: unscale(m[2]),
			Dose:        unscale(m[3]),
			Threshold:   unscale(m[4]),
		},
		Version: m[5],
	}, nil
}
