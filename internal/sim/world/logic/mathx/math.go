package mathx

// FloorDiv rounds toward negative infinity. b must be positive.
func FloorDiv(a, b int) int {
	q := a / b
	if a%b < 0 {
		q--
	}
	return q
}

// Mod is the non-negative remainder. b must be positive.
func Mod(a, b int) int {
	m := a % b
	if m < 0 {
		m += b
	}
	return m
}

func AbsInt(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

func Sign(x int) int {
	switch {
	case x > 0:
		return 1
	case x < 0:
		return -1
	}
	return 0
}

func Clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Chebyshev is the roguelike step distance: diagonal steps count as one.
func Chebyshev(x1, y1, x2, y2 int) int {
	dx := AbsInt(x1 - x2)
	dy := AbsInt(y1 - y2)
	if dx > dy {
		return dx
	}
	return dy
}

// Octile weighs straight steps by straight and diagonal steps by diag.
func Octile(x1, y1, x2, y2, straight, diag int) int {
	dx := AbsInt(x1 - x2)
	dy := AbsInt(y1 - y2)
	lo, hi := dx, dy
	if lo > hi {
		lo, hi = hi, lo
	}
	return straight*(hi-lo) + diag*lo
}

func mix64(z uint64) uint64 {
	z += 0x9e3779b97f4a7c15
	z = (z ^ (z >> 30)) * 0xbf58476d1ce4e5b9
	z = (z ^ (z >> 27)) * 0x94d049bb133111eb
	return z ^ (z >> 31)
}

func Hash2(seed int64, x, y int) uint64 {
	ux := uint64(uint32(int32(x)))
	uy := uint64(uint32(int32(y)))
	v := uint64(seed) ^ (ux * 0x9e3779b97f4a7c15) ^ (uy * 0xbf58476d1ce4e5b9)
	return mix64(v)
}

func Hash3(seed int64, x, y, z int) uint64 {
	ux := uint64(uint32(int32(x)))
	uy := uint64(uint32(int32(y)))
	uz := uint64(uint32(int32(z)))
	v := uint64(seed) ^ (ux * 0x9e3779b97f4a7c15) ^ (uy * 0xc2b2ae3d27d4eb4f) ^ (uz * 0xbf58476d1ce4e5b9)
	return mix64(v)
}

// Roll returns a deterministic value in [lo, hi] for the given key.
func Roll(seed int64, x, y, salt, lo, hi int) int {
	if hi <= lo {
		return lo
	}
	span := uint64(hi - lo + 1)
	return lo + int(Hash3(seed+int64(salt)*0x51ed27, x, y, salt)%span)
}
