package control

// ClampPercent limits percent to [0,100].
func ClampPercent(percent int) int {
	if percent < 0 {
		return 0
	}
	if percent > 100 {
		return 100
	}
	return percent
}

// ToDuty maps an intensity percentage onto [0,maxDuty] with a zero
// intercept: 0% is a full cutoff and 100% is maxDuty. The result is
// rounded half up, so ToDuty(55, 255) == 140.
func ToDuty(percent, maxDuty int) int {
	percent = ClampPercent(percent)
	if maxDuty <= 0 {
		return 0
	}
	return (percent*maxDuty + 50) / 100
}
