package utils

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
)

// Clamp limits v to [lo, hi].
func Clamp(v, lo, hi float64) float64 {
	return max(lo, min(hi, v))
}

func RoundToXDp(f float64, dp uint8) float64 {
	e := math.Pow(10, float64(dp))
	return math.Round(f*e) / e
}

// NextAvailableFilename returns dir/name+ext, or the first dir/name_N+ext that doesn't exist yet.
func NextAvailableFilename(dir, name, ext string) string {
	path := filepath.Join(dir, name+ext)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return path
	}

	for i := 1; ; i++ {
		newName := fmt.Sprintf("%s_%d%s", name, i, ext)
		newPath := filepath.Join(dir, newName)
		if _, err := os.Stat(newPath); os.IsNotExist(err) {
			return newPath
		}
	}
}
