package environment

// ReverseCredential reverses the rune sequence of a credential. Applying it twice returns the input,
// so the same function obfuscates a stored credential and recovers it.
func ReverseCredential(credential string) string {
	runes := []rune(credential)
	for left, right := 0, len(runes)-1; left < right; left, right = left+1, right-1 {
		runes[left], runes[right] = runes[right], runes[left]
	}
	return string(runes)
}
