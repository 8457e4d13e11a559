// Command hoplixi is a thin CLI front-end over internal/hopcrypt: just
// enough surface (encrypt/decrypt/info subcommands) to exercise the
// engine end to end. Argument parsing, password policy, and progress
// rendering are deliberately minimal; the engine is the deliverable,
// not this wrapper.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"syscall"

	"github.com/sirupsen/logrus"
	"golang.org/x/term"

	"github.com/vartec/hoplixi/internal/hopconfig"
	"github.com/vartec/hoplixi/internal/hopcrypt"
)

func main() {
	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	var err error
	switch os.Args[1] {
	case "encrypt":
		err = runEncrypt(log, os.Args[2:])
	case "decrypt":
		err = runDecrypt(log, os.Args[2:])
	case "info":
		err = runInfo(log, os.Args[2:])
	default:
		usage()
		os.Exit(2)
	}

	if err != nil {
		if kind, ok := hopcrypt.KindOf(err); ok {
			log.WithField("kind", kind.String()).Error(err)
		} else {
			log.Error(err)
		}
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: hoplixi <encrypt|decrypt|info> [flags]")
}

func runEncrypt(log *logrus.Logger, args []string) error {
	fs := flag.NewFlagSet("encrypt", flag.ExitOnError)
	input := fs.String("in", "", "input file or directory to encrypt")
	outDir := fs.String("out", ".", "directory to write the encrypted container into")
	extension := fs.String("ext", hopcrypt.DefaultExtension, "output file extension")
	gzip := fs.Bool("gzip", false, "gzip-compress the payload before encrypting")
	mobile := fs.Bool("mobile", false, "use the mobile chunk-size preset instead of desktop")
	quiet := fs.Bool("quiet", false, "suppress progress output")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *input == "" {
		return fmt.Errorf("hoplixi encrypt: -in is required")
	}

	password, err := readPassword("Password: ")
	if err != nil {
		return err
	}
	defer hopcrypt.SecureZero(password)

	cfg := hopconfig.DefaultConfig()
	if *mobile {
		cfg.ChunkSizePreset = "mobile"
	}

	engine := hopcrypt.NewEngine(log)
	result, err := engine.Encrypt(context.Background(), hopcrypt.EncryptOptions{
		InputPath:  *input,
		OutputDir:  *outDir,
		Password:   password,
		Extension:  *extension,
		Gzip:       *gzip,
		ChunkSize:  cfg.ChunkSize(),
		Argon2:     cfg.Argon2,
		OnProgress: progressPrinter(*quiet),
	})
	if err != nil {
		return err
	}

	fmt.Printf("wrote %s (uuid=%s, %d bytes plaintext)\n", result.OutputPath, result.UUID, result.OriginalSize)
	return nil
}

func runDecrypt(log *logrus.Logger, args []string) error {
	fs := flag.NewFlagSet("decrypt", flag.ExitOnError)
	input := fs.String("in", "", "encrypted container to decrypt")
	outDir := fs.String("out", ".", "directory to write the decrypted output into")
	quiet := fs.Bool("quiet", false, "suppress progress output")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *input == "" {
		return fmt.Errorf("hoplixi decrypt: -in is required")
	}

	password, err := readPassword("Password: ")
	if err != nil {
		return err
	}
	defer hopcrypt.SecureZero(password)

	engine := hopcrypt.NewEngine(log)
	result, err := engine.Decrypt(context.Background(), hopcrypt.DecryptOptions{
		InputPath:  *input,
		OutputDir:  *outDir,
		Password:   password,
		OnProgress: progressPrinter(*quiet),
	})
	if err != nil {
		return err
	}

	fmt.Printf("wrote %s\n", result.OutputPath)
	return nil
}

func runInfo(log *logrus.Logger, args []string) error {
	fs := flag.NewFlagSet("info", flag.ExitOnError)
	input := fs.String("in", "", "encrypted container to inspect")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *input == "" {
		return fmt.Errorf("hoplixi info: -in is required")
	}

	password, err := readPassword("Password: ")
	if err != nil {
		return err
	}
	defer hopcrypt.SecureZero(password)

	engine := hopcrypt.NewEngine(log)
	meta, err := engine.ReadHeader(context.Background(), hopcrypt.DecryptOptions{
		InputPath: *input,
		Password:  password,
	})
	if err != nil {
		return err
	}

	fmt.Printf("original_filename:  %s\n", meta.OriginalFilename)
	fmt.Printf("original_extension: %s\n", meta.OriginalExtension)
	fmt.Printf("gzip_compressed:    %t\n", meta.GzipCompressed)
	fmt.Printf("original_size:      %d\n", meta.OriginalSize)
	fmt.Printf("uuid:               %s\n", meta.UUID)
	for k, v := range meta.Metadata {
		fmt.Printf("metadata[%s]:       %s\n", k, v)
	}
	return nil
}

// readPassword prompts on stderr and reads a password from stdin,
// without echo when stdin is a terminal. Password policy (strength,
// confirmation, keyfiles) is an explicit non-goal of the core engine and
// is not this wrapper's concern either.
func readPassword(prompt string) ([]byte, error) {
	fmt.Fprint(os.Stderr, prompt)

	if term.IsTerminal(int(syscall.Stdin)) {
		pw, err := term.ReadPassword(int(syscall.Stdin))
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return nil, fmt.Errorf("reading password: %w", err)
		}
		return pw, nil
	}

	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return nil, fmt.Errorf("reading password: %w", err)
	}
	return []byte(trimNewline(line)), nil
}

func trimNewline(s string) string {
	for len(s) > 0 && (s[len(s)-1] == '\n' || s[len(s)-1] == '\r') {
		s = s[:len(s)-1]
	}
	return s
}

func progressPrinter(quiet bool) hopcrypt.ProgressFunc {
	if quiet {
		return nil
	}
	return func(ev hopcrypt.ProgressEvent) {
		if ev.TotalBytes > 0 {
			fmt.Fprintf(os.Stderr, "\r%s: %.1f%%", ev.Stage, ev.Percentage())
		} else {
			fmt.Fprintf(os.Stderr, "\r%s...", ev.Stage)
		}
		if ev.Stage == hopcrypt.StageDone {
			fmt.Fprintln(os.Stderr)
		}
	}
}
