package config

// Merge combines layers left to right into a new Layer. For a key present in
// several layers the value from the last one wins. Inputs are never modified
// and nil layers are skipped; zero layers yield an empty Layer.
func Merge(layers ...Layer) Layer {
	size := 0
	for _, l := range layers {
		size += len(l)
	}

	out := make(Layer, size)
	for _, l := range layers {
		for k, v := range l {
			out[k] = v
		}
	}
	return out
}
