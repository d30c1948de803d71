package x264

// EncodeArgs returns the argument vector for encoding one segment script.
// Segments are encoded stitchable so the merger can join them.
func EncodeArgs(executable string, preset []string, sar, outputPath, scriptPath string) []string {
	args := make([]string, 0, len(preset)+7)
	args = append(args, executable)
	args = append(args, preset...)
	return append(args, "--stitchable", "--sar", sar, "--output", outputPath, scriptPath)
}
