package audio

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"time"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"lectern/internal/fileutil"
	"lectern/internal/services"
)

// ErrNotWAV marks input that is not a RIFF/WAVE container.
var ErrNotWAV = errors.New("not a RIFF/WAVE file")

// samplesPerRead sizes the buffer used when streaming PCM between files.
const samplesPerRead = 8192

// PCMFormat describes integer PCM audio.
type PCMFormat struct {
	SampleRate int
	Channels   int
	BitDepth   int
}

func (f PCMFormat) String() string {
	return fmt.Sprintf("%d Hz/%d ch/%d bit", f.SampleRate, f.Channels, f.BitDepth)
}

// WAVInfo describes the format and payload of a WAV file.
type WAVInfo struct {
	AudioFormat   uint16
	Channels      uint16
	SampleRate    uint32
	ByteRate      uint32
	BitsPerSample uint16
	DataSize      int64
}

// Format returns the PCM layout of the file.
func (w WAVInfo) Format() PCMFormat {
	return PCMFormat{SampleRate: int(w.SampleRate), Channels: int(w.Channels), BitDepth: int(w.BitsPerSample)}
}

// Duration derives the play time from the data size and byte rate.
func (w WAVInfo) Duration() time.Duration {
	if w.ByteRate == 0 {
		return 0
	}
	return time.Duration(w.DataSize * int64(time.Second) / int64(w.ByteRate))
}

// ReadWAVInfo parses the header of the WAV file at path.
func ReadWAVInfo(path string) (WAVInfo, error) {
	f, err := os.Open(path)
	if err != nil {
		return WAVInfo{}, err
	}
	defer f.Close()
	info, _, err := openWAV(f)
	if err != nil {
		return WAVInfo{}, fmt.Errorf("%s: %w", path, err)
	}
	return info, nil
}

// openWAV reads the headers of f and leaves the decoder positioned at the
// start of the sample data.
func openWAV(f *os.File) (WAVInfo, *wav.Decoder, error) {
	stat, err := f.Stat()
	if err != nil {
		return WAVInfo{}, nil, err
	}
	dec := wav.NewDecoder(f)
	dec.ReadInfo()
	if dec.Err() != nil || dec.NumChans == 0 || dec.SampleRate == 0 {
		return WAVInfo{}, nil, ErrNotWAV
	}
	if err := dec.FwdToPCM(); err != nil {
		return WAVInfo{}, nil, fmt.Errorf("missing data chunk: %w", err)
	}
	offset, err := f.Seek(0, io.SeekCurrent)
	if err != nil {
		return WAVInfo{}, nil, err
	}
	info := WAVInfo{
		AudioFormat:   dec.WavAudioFormat,
		Channels:      dec.NumChans,
		SampleRate:    dec.SampleRate,
		ByteRate:      dec.AvgBytesPerSec,
		BitsPerSample: dec.BitDepth,
		// Streamed responses may carry a placeholder size.
		DataSize: min(int64(dec.PCMSize), stat.Size()-offset),
	}
	return info, dec, nil
}

// ConcatWAV joins the samples of inputs into output. All inputs must share
// the format of the first one.
func ConcatWAV(inputs []string, output string) error {
	if len(inputs) == 0 {
		return services.Wrap(services.ErrValidation, "audio", "concat", "no input files", nil)
	}
	files := make([]*os.File, 0, len(inputs))
	defer func() {
		for _, f := range files {
			_ = f.Close()
		}
	}()
	decoders := make([]*wav.Decoder, 0, len(inputs))
	var first WAVInfo
	var total int64
	for i, path := range inputs {
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		files = append(files, f)
		info, dec, err := openWAV(f)
		if err != nil {
			return services.Wrap(services.ErrValidation, "audio", "concat", path, err)
		}
		if i == 0 {
			first = info
		} else if info.Format() != first.Format() || info.AudioFormat != first.AudioFormat {
			return services.Wrap(services.ErrValidation, "audio", "concat",
				fmt.Sprintf("%s: format %s differs from %s", path, info.Format(), first.Format()), nil)
		}
		decoders = append(decoders, dec)
		total += info.DataSize
	}
	if total+44 > math.MaxUint32 {
		return services.Wrap(services.ErrValidation, "audio", "concat", "combined audio exceeds the 4 GiB WAV limit", nil)
	}

	format := first.Format()
	return writeWAV(output, format, int(first.AudioFormat), func(enc *wav.Encoder) error {
		buf := &goaudio.IntBuffer{
			Format:         &goaudio.Format{NumChannels: format.Channels, SampleRate: format.SampleRate},
			Data:           make([]int, samplesPerRead),
			SourceBitDepth: format.BitDepth,
		}
		for i, dec := range decoders {
			for {
				buf.Data = buf.Data[:cap(buf.Data)]
				n, err := dec.PCMBuffer(buf)
				if err != nil {
					return fmt.Errorf("read %s: %w", inputs[i], err)
				}
				if n == 0 {
					break
				}
				buf.Data = buf.Data[:n]
				if err := enc.Write(buf); err != nil {
					return fmt.Errorf("write %s: %w", output, err)
				}
			}
		}
		return nil
	})
}

// WriteSamples encodes interleaved integer samples as a PCM WAV file.
func WriteSamples(path string, samples []int, format PCMFormat) error {
	return writeWAV(path, format, 1, func(enc *wav.Encoder) error {
		if len(samples) == 0 {
			return nil
		}
		return enc.Write(&goaudio.IntBuffer{
			Format:         &goaudio.Format{NumChannels: format.Channels, SampleRate: format.SampleRate},
			Data:           samples,
			SourceBitDepth: format.BitDepth,
		})
	})
}

// writeWAV atomically creates path with a header for format and lets fill
// append samples. The encoder patches the chunk sizes on close.
func writeWAV(path string, format PCMFormat, audioFormat int, fill func(*wav.Encoder) error) error {
	return fileutil.WriteAtomic(path, 0o644, func(w io.Writer) error {
		ws, ok := w.(io.WriteSeeker)
		if !ok {
			return fmt.Errorf("write %s: output is not seekable", path)
		}
		enc := wav.NewEncoder(ws, format.SampleRate, format.BitDepth, format.Channels, audioFormat)
		// An empty write emits the headers even when there are no samples.
		if err := enc.Write(&goaudio.IntBuffer{
			Format: &goaudio.Format{NumChannels: format.Channels, SampleRate: format.SampleRate},
		}); err != nil {
			return err
		}
		if err := fill(enc); err != nil {
			return err
		}
		return enc.Close()
	})
}
