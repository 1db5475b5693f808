package slices

func Map[L ~[]X, X, Y any](l L, f func(X) Y) []Y {
	r := make([]Y, len(l))
	for i, x := range l {
		r[i] = f(x)
	}
	return r
}

func Filter[L ~[]X, X any](l L, keep func(X) bool) []X {
	var r []X
	for _, x := range l {
		if keep(x) {
			r = append(r, x)
		}
	}
	return r
}

func Contains[L ~[]X, X comparable](l L, x X) bool {
	for _, y := range l {
		if y == x {
			return true
		}
	}
	return false
}
