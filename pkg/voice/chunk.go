package voice

// Playback sample rate. All decoded audio is normalized to mono at this
// rate before it reaches the sink.
const (
	SampleRate = 24000
	Channels   = 1
)

// AudioChunk is a block of PCM16 audio samples.
type AudioChunk struct {
	// Samples contains PCM16 audio samples (little-endian).
	Samples []int16

	// SampleRate is the sample rate of this chunk.
	SampleRate int

	// Channels is the number of channels in this chunk.
	Channels int
}

// Bytes returns the raw little-endian bytes of the chunk.
func (c *AudioChunk) Bytes() []byte {
	return SamplesToBytes(c.Samples)
}

// Duration returns the chunk length in seconds.
func (c *AudioChunk) Duration() float64 {
	if c.SampleRate == 0 || c.Channels == 0 {
		return 0
	}
	return float64(len(c.Samples)) / float64(c.SampleRate*c.Channels)
}

// Peak returns the largest absolute sample value in the chunk. Drives the
// lip-sync mouth openness.
func (c *AudioChunk) Peak() int {
	var peak int
	for _, s := range c.Samples {
		v := int(s)
		if v < 0 {
			v = -v
		}
		if v > peak {
			peak = v
		}
	}
	return peak
}

// Normalize converts the chunk to mono at the playback rate.
func (c *AudioChunk) Normalize() AudioChunk {
	samples := c.Samples
	if c.Channels == 2 {
		samples = StereoToMono(samples)
	}
	samples = Resample(samples, c.SampleRate, SampleRate)
	return AudioChunk{Samples: samples, SampleRate: SampleRate, Channels: Channels}
}

// Resample converts audio from one sample rate to another using linear
// interpolation. Adequate for speech audio.
func Resample(samples []int16, fromRate, toRate int) []int16 {
	if fromRate == toRate || len(samples) == 0 {
		return samples
	}

	ratio := float64(fromRate) / float64(toRate)
	newLen := int(float64(len(samples)) / ratio)
	if newLen == 0 {
		return []int16{}
	}

	result := make([]int16, newLen)
	for i := 0; i < newLen; i++ {
		srcPos := float64(i) * ratio
		srcIdx := int(srcPos)
		frac := srcPos - float64(srcIdx)

		if srcIdx >= len(samples)-1 {
			result[i] = samples[len(samples)-1]
		} else {
			s1 := float64(samples[srcIdx])
			s2 := float64(samples[srcIdx+1])
			result[i] = int16(s1 + frac*(s2-s1))
		}
	}
	return result
}

// BytesToSamples converts raw PCM16 little-endian bytes to int16 samples.
func BytesToSamples(data []byte) []int16 {
	samples := make([]int16, len(data)/2)
	for i := range samples {
		samples[i] = int16(data[i*2]) | int16(data[i*2+1])<<8
	}
	return samples
}

// SamplesToBytes converts int16 samples to raw PCM16 little-endian bytes.
func SamplesToBytes(samples []int16) []byte {
	data := make([]byte, len(samples)*2)
	for i, s := range samples {
		data[i*2] = byte(s)
		data[i*2+1] = byte(s >> 8)
	}
	return data
}

// StereoToMono averages stereo samples to mono.
func StereoToMono(samples []int16) []int16 {
	mono := make([]int16, len(samples)/2)
	for i := range mono {
		left := int32(samples[i*2])
		right := int32(samples[i*2+1])
		mono[i] = int16((left + right) / 2)
	}
	return mono
}
