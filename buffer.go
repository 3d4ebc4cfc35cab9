// buffer.go — the per-block audio buffer handed to ProcessBlock.
package sfx

// Block is a processing buffer: per-channel sample slices plus the frame
// count actually filled. Hosts reuse one Block across calls; the runtime
// never retains it.
type Block struct {
	Channels [][]float64
	Frames   int
}

// NewBlock allocates a block with the given channel count and capacity,
// with Frames preset to the full capacity.
func NewBlock(channels, frames int) *Block {
	b := &Block{
		Channels: make([][]float64, channels),
		Frames:   frames,
	}
	for i := range b.Channels {
		b.Channels[i] = make([]float64, frames)
	}
	return b
}

// sample returns channel ch at frame i, falling back to channel 0 for mono
// sources feeding a stereo effect.
func (b *Block) sample(ch, i int) float64 {
	if ch < len(b.Channels) {
		return b.Channels[ch][i]
	}
	if len(b.Channels) > 0 {
		return b.Channels[0][i]
	}
	return 0
}

// setSample writes channel ch at frame i when the channel exists.
func (b *Block) setSample(ch, i int, v float64) {
	if ch < len(b.Channels) {
		b.Channels[ch][i] = v
	}
}
