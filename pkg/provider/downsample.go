package provider

// Downsample reduces data to at most n points. The series order is
// preserved and the final point is always kept, so a live chart keeps
// its most recent value. n <= 0 means no cap.
func Downsample(data []TensorDatum, n int) []TensorDatum {
	if n <= 0 || len(data) <= n {
		return data
	}
	out := make([]TensorDatum, 0, n)
	if n == 1 {
		return append(out, data[len(data)-1])
	}
	// n-1 strided picks over the prefix, then the last point.
	stride := float64(len(data)-1) / float64(n-1)
	for i := 0; i < n-1; i++ {
		out = append(out, data[int(float64(i)*stride)])
	}
	return append(out, data[len(data)-1])
}
