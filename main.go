// Command paperkey extracts the secret portions of an OpenPGP secret key
// into a small, printable backup artifact, and restores a full secret
// key by recombining that artifact with the matching public key.
package main

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/lcp29/Paperkey/paperkey"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"nullprogram.com/x/optparse"
)

const (
	cmdExtract = iota
	cmdRestore
)

// Print the message like fmt.Printf() and then os.Exit(1).
func fatal(format string, args ...interface{}) {
	buf := bytes.NewBufferString("paperkey: ")
	fmt.Fprintf(buf, format, args...)
	buf.WriteRune('\n')
	os.Stderr.Write(buf.Bytes())
	os.Exit(1)
}

type config struct {
	cmd int

	secretKeyFile string
	publicKeyFile string
	outputFile    string
	outputType    string
	outputWidth   int
	strict        bool
	verbose       bool
	help          bool
	explain       bool
}

// logrusLogger adapts *logrus.Logger to paperkey.Logger, the only
// logging surface the core packages are allowed to see.
type logrusLogger struct{ log *logrus.Logger }

func (l logrusLogger) Debugf(format string, args ...interface{}) {
	l.log.Debugf(format, args...)
}

func usage(w io.Writer) {
	bw := bufio.NewWriter(w)
	i := "  "
	p := "paperkey"
	f := func(s ...interface{}) {
		fmt.Fprintln(bw, s...)
	}
	f("Usage:")
	f(i, p, "--secrets=FILE [--output=FILE] [--output-format=raw|base16] [--output-width=N] [-v]")
	f(i, p, "--pubring=FILE --secrets=FILE [--output=FILE] [--output-format=raw|base16] [--strict] [-v]")
	f("Commands:")
	f(i, "(default)                extract the secret portions of a secret key")
	f(i, "--pubring FILE           restore: recombine a paper key with this public key")
	f("Options:")
	f(i, "--secrets FILE           secret key (extract) or paper-key artifact (restore)")
	f(i, "--pubring FILE           public key file, selects restore mode")
	f(i, "--output FILE            write to FILE instead of stdout")
	f(i, "--output-format FORMAT   raw | base16 | auto (default base16; auto sniffs on restore)")
	f(i, "--output-width N         base16 column width (default 78, minimum 14)")
	f(i, "--strict                 fail instead of silently dropping unmatched subkeys")
	f(i, "--explain                print the file-format recipe and exit")
	f(i, "-h, --help               print this help message")
	f(i, "-v, --verbose            print additional information to stderr")
	bw.Flush()
}

func parseArgs(args []string) *config {
	conf := config{
		outputType:  "base16",
		outputWidth: 78,
	}

	options := []optparse.Option{
		{"secrets", 0, optparse.KindRequired},
		{"pubring", 0, optparse.KindRequired},
		{"output", 0, optparse.KindRequired},
		{"output-format", 0, optparse.KindRequired},
		{"output-width", 0, optparse.KindRequired},
		{"strict", 0, optparse.KindNone},
		{"explain", 0, optparse.KindNone},
		{"help", 'h', optparse.KindNone},
		{"verbose", 'v', optparse.KindNone},
	}

	results, rest, err := optparse.Parse(options, args)
	if err != nil {
		usage(os.Stderr)
		fatal("%s", err)
	}

	for _, result := range results {
		switch result.Long {
		case "secrets":
			conf.secretKeyFile = result.Optarg
		case "pubring":
			conf.publicKeyFile = result.Optarg
			conf.cmd = cmdRestore
		case "output":
			conf.outputFile = result.Optarg
		case "output-format":
			switch result.Optarg {
			case "raw", "base16", "auto":
				conf.outputType = result.Optarg
			default:
				fatal("invalid --output-format: %s", result.Optarg)
			}
		case "output-width":
			var width int
			if _, err := fmt.Sscanf(result.Optarg, "%d", &width); err != nil {
				fatal("invalid --output-width: %s", result.Optarg)
			}
			conf.outputWidth = width
		case "strict":
			conf.strict = true
		case "explain":
			conf.explain = true
		case "help":
			conf.help = true
		case "verbose":
			conf.verbose = true
		}
	}

	if len(rest) > 0 {
		fatal("too many arguments: %v", rest)
	}
	if conf.secretKeyFile == "" && !conf.help && !conf.explain {
		usage(os.Stderr)
		fatal("--secrets is required")
	}

	return &conf
}

func framingFor(conf *config) paperkey.Framing {
	switch conf.outputType {
	case "raw":
		return paperkey.RAW
	case "auto":
		return paperkey.Auto
	default:
		return paperkey.BASE16
	}
}

func readFile(path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(path)
}

func openOutput(conf *config) (io.Writer, func(), error) {
	if conf.outputFile == "" || conf.outputFile == "-" {
		return os.Stdout, func() {}, nil
	}
	f, err := os.Create(conf.outputFile)
	if err != nil {
		return nil, nil, err
	}
	return f, func() { f.Close() }, nil
}

func runExtract(conf *config, log *logrus.Logger) error {
	secretBytes, err := readFile(conf.secretKeyFile)
	if err != nil {
		return errors.Wrap(err, "reading secret key")
	}
	log.WithField("bytes", len(secretBytes)).Debug("loaded secret key")

	input := paperkey.NewStreamFromBytes(secretBytes)
	output := paperkey.NewStream()

	policy := paperkey.Policy{Framing: framingFor(conf), OutputWidth: conf.outputWidth, Strict: conf.strict, Logger: logrusLogger{log}}
	if err := paperkey.Extract(input, output, policy); err != nil {
		return err
	}

	w, closeFn, err := openOutput(conf)
	if err != nil {
		return errors.Wrap(err, "opening output")
	}
	defer closeFn()
	_, err = w.Write(output.Bytes())
	return err
}

func runRestore(conf *config, log *logrus.Logger) error {
	pubBytes, err := readFile(conf.publicKeyFile)
	if err != nil {
		return errors.Wrap(err, "reading public key")
	}
	paperBytes, err := readFile(conf.secretKeyFile)
	if err != nil {
		return errors.Wrap(err, "reading paper key")
	}
	log.WithField("pubBytes", len(pubBytes)).WithField("paperBytes", len(paperBytes)).Debug("loaded restore inputs")

	pub := paperkey.NewStreamFromBytes(pubBytes)
	paper := paperkey.NewStreamFromBytes(paperBytes)
	output := paperkey.NewStream()

	policy := paperkey.Policy{Strict: conf.strict, Logger: logrusLogger{log}}
	if err := paperkey.Restore(pub, paper, framingFor(conf), output, policy); err != nil {
		return err
	}

	w, closeFn, err := openOutput(conf)
	if err != nil {
		return errors.Wrap(err, "opening output")
	}
	defer closeFn()
	_, err = w.Write(output.Bytes())
	return err
}

func exitCode(err error) int {
	cause := errors.Cause(err)
	pkErr, ok := cause.(*paperkey.Error)
	if !ok {
		return 1
	}
	switch pkErr.Kind {
	case paperkey.CrcMismatch, paperkey.FingerprintMismatch:
		return 2
	default:
		return 1
	}
}

func main() {
	conf := parseArgs(os.Args)
	if conf.help {
		usage(os.Stdout)
		os.Exit(0)
	}
	if conf.explain {
		fmt.Print(paperkey.FileFormatDescription)
		os.Exit(0)
	}

	log := logrus.New()
	log.SetOutput(os.Stderr)
	if conf.verbose {
		log.SetLevel(logrus.DebugLevel)
	} else {
		log.SetLevel(logrus.WarnLevel)
	}

	var err error
	switch conf.cmd {
	case cmdExtract:
		err = runExtract(conf, log)
	case cmdRestore:
		err = runRestore(conf, log)
	}

	if err != nil {
		log.WithError(err).Error("paperkey failed")
		os.Exit(exitCode(err))
	}
}
