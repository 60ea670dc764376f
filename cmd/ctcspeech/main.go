package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/ieee0824/ctcspeech"
	"github.com/ieee0824/ctcspeech/acoustic"
	"github.com/ieee0824/ctcspeech/audio"
	"github.com/ieee0824/ctcspeech/evaluate"
	"github.com/ieee0824/ctcspeech/feature"
	"github.com/ieee0824/ctcspeech/internal/config"
)

func main() {
	configPath := flag.String("config", "", "path to YAML config file")
	modelPath := flag.String("model", "", "path to acoustic model (.onnx or gob DNN)")
	alphabetPath := flag.String("alphabet", "", "path to alphabet file")
	lmPath := flag.String("lm", "", "path to language model (ARPA format)")
	triePath := flag.String("trie", "", "path to word list for the vocabulary trie")
	audioPath := flag.String("audio", "", "path to input WAV or MP3 file")
	beam := flag.Int("beam", 0, "beam width (0=config value)")
	topK := flag.Int("top", 0, "number of transcripts to print (0=config value)")
	ref := flag.String("ref", "", "reference transcript; prints WER and CER of the best result")
	verbose := flag.Bool("v", false, "verbose output")

	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	overrideFlag(&cfg.Model.Path, *modelPath)
	overrideFlag(&cfg.Model.Alphabet, *alphabetPath)
	overrideFlag(&cfg.Model.LM, *lmPath)
	overrideFlag(&cfg.Model.Trie, *triePath)
	if *beam > 0 {
		cfg.Decoder.BeamWidth = *beam
	}
	if *topK > 0 {
		cfg.Decoder.TopPaths = *topK
	}
	if *verbose {
		cfg.Log.Level = "debug"
	}

	if cfg.Model.Path == "" || cfg.Model.Alphabet == "" || *audioPath == "" {
		fmt.Fprintln(os.Stderr, "Usage: ctcspeech -model MODEL -alphabet ALPHABET [-lm LM -trie WORDS] -audio AUDIO")
		flag.PrintDefaults()
		os.Exit(1)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.Log.SlogLevel()}))

	m, err := ctcspeech.New(cfg.Model.Path, cfg.Model.Alphabet, cfg.Model.LM, cfg.Model.Trie, modelOptions(cfg, logger)...)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer m.Close()

	if !m.Ready() {
		fmt.Fprintf(os.Stderr, "Error: %v\n", m.Err())
		os.Exit(1)
	}

	samples, header, err := audio.ReadFile(*audioPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if header.SampleRate != cfg.Feature.SampleRate {
		logger.Info("resampling input", "from", header.SampleRate, "to", cfg.Feature.SampleRate)
		samples = audio.Resample(samples, header.SampleRate, cfg.Feature.SampleRate)
	}

	results, err := m.SpeechToTextTopK(samples, cfg.Feature.SampleRate, cfg.Decoder.TopPaths)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	for i, r := range results {
		if i == 0 {
			fmt.Println(r.Text)
		}
		if *verbose {
			fmt.Fprintf(os.Stderr, "  #%d score=%.4f %q\n", i+1, r.Score, r.Text)
		}
	}

	if *ref != "" && len(results) > 0 {
		fmt.Fprintf(os.Stderr, "WER: %.4f CER: %.4f\n", evaluate.WER(*ref, results[0].Text), evaluate.CER(*ref, results[0].Text))
	}
}

func modelOptions(cfg config.Config, logger *slog.Logger) []ctcspeech.Option {
	feat := feature.DefaultConfig()
	feat.SampleRate = cfg.Feature.SampleRate
	feat.Stride = cfg.Feature.Stride
	feat.UseCMN = cfg.Feature.UseCMN
	feat.Whiten = cfg.Feature.Whiten

	return []ctcspeech.Option{
		ctcspeech.WithLogger(logger),
		ctcspeech.WithNCep(cfg.Feature.NCep),
		ctcspeech.WithNContext(cfg.Feature.NContext),
		ctcspeech.WithFeatureConfig(feat),
		ctcspeech.WithBeamWidth(cfg.Decoder.BeamWidth),
		ctcspeech.WithParallelism(cfg.Decoder.Parallelism),
		ctcspeech.WithLMWeight(cfg.Decoder.LMWeight),
		ctcspeech.WithWordCountWeight(cfg.Decoder.WordCountWeight),
		ctcspeech.WithValidWordCountWeight(cfg.Decoder.ValidWordCountWeight),
		ctcspeech.WithPrefixLookahead(cfg.Decoder.PrefixLookahead),
		ctcspeech.WithONNXNames(acoustic.ONNXConfig{
			InputName:   cfg.ONNX.InputName,
			LengthName:  cfg.ONNX.LengthName,
			OutputName:  cfg.ONNX.OutputName,
			LibraryPath: cfg.ONNX.LibraryPath,
		}),
	}
}

func overrideFlag(target *string, value string) {
	if value != "" {
		*target = value
	}
}
