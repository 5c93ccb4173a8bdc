// Package main provides the Bloom CLI.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/bloom-ml/bloom/classifier"
	"github.com/bloom-ml/bloom/internal/api"
	"github.com/bloom-ml/bloom/internal/device"
	"github.com/bloom-ml/bloom/internal/zoo"
)

const version = "v0.1.0-dev"

func main() {
	if len(os.Args) < 2 {
		usage()
		return
	}

	var err error
	switch os.Args[1] {
	case "version":
		fmt.Printf("Bloom %s\n", version)
	case "inspect":
		err = inspect(os.Args[2:])
	case "predict":
		err = predict(os.Args[2:])
	case "serve":
		err = serve(os.Args[2:])
	default:
		usage()
		os.Exit(2)
	}
	if err != nil {
		log.Fatal(err)
	}
}

func usage() {
	fmt.Println("Bloom - Transfer-Learning Image Classification")
	fmt.Printf("Version: %s\n\n", version)
	fmt.Println("Commands:")
	fmt.Println("  version    Show version")
	fmt.Println("  inspect    Validate the data tree and print the model summary")
	fmt.Println("  predict    Classify a single image")
	fmt.Println("  serve      Run the inference HTTP server")
	fmt.Printf("\nArchitectures: %s\n", strings.Join(zoo.Architectures(), ", "))
}

// load builds a classifier from the shared flags of a subcommand.
func load(fs *flag.FlagSet, args []string) (*classifier.Classifier, error) {
	configPath := fs.String("config", "", "TOML configuration file")
	dataDir := fs.String("data", "", "labeled image tree (test/, train/, valid/)")
	arch := fs.String("arch", "", "feature extractor architecture")
	weightsDir := fs.String("weights", "", "published weight files directory")
	categories := fs.String("categories", "", "JSON class index to name mapping")
	cpu := fs.Bool("cpu", false, "force CPU placement")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	config := classifier.DefaultConfig()
	if *configPath != "" {
		loaded, err := classifier.LoadConfig(*configPath)
		if err != nil {
			return nil, err
		}
		config = loaded
	}
	if *dataDir != "" {
		config.DataDir = *dataDir
	}
	if *arch != "" {
		config.Architecture = *arch
	}
	if *weightsDir != "" {
		config.WeightsDir = *weightsDir
	}
	if *categories != "" {
		config.CategoryNamesFile = *categories
	}
	if *cpu {
		config.UseGPU = false
	}
	return classifier.New(config)
}

func inspect(args []string) error {
	fs := flag.NewFlagSet("inspect", flag.ExitOnError)
	c, err := load(fs, args)
	if err != nil {
		return err
	}

	s := c.Summary()
	fmt.Printf("Architecture:         %s\n", s.Architecture)
	fmt.Printf("Device:               %s", s.Device)
	if name := device.AdapterName(); name != "" {
		fmt.Printf(" (%s)", name)
	}
	fmt.Println()
	fmt.Printf("Feature width:        %d\n", s.InputUnits)
	fmt.Printf("Hidden units:         %d\n", s.HiddenUnits)
	fmt.Printf("Output classes:       %d\n", s.OutputUnits)
	fmt.Printf("Total parameters:     %d\n", s.TotalParameters)
	fmt.Printf("Trainable parameters: %d\n", s.TrainableParameters)

	for _, split := range []string{classifier.SplitTrain, classifier.SplitValid, classifier.SplitTest} {
		if ds := c.Dataset(split); ds != nil {
			fmt.Printf("%-6s %5d samples, %d classes, %d batches\n",
				split, ds.Len(), len(ds.Classes()), c.Loader(split).NumBatches())
		}
	}
	return nil
}

func predict(args []string) error {
	fs := flag.NewFlagSet("predict", flag.ExitOnError)
	topK := fs.Int("top", 5, "number of ranked classes to show")
	c, err := load(fs, args)
	if err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("predict expects exactly one image path")
	}

	predictions, err := c.Predict(fs.Arg(0), *topK)
	if err != nil {
		return err
	}
	for rank, p := range predictions {
		fmt.Printf("%2d. %-24s %6.2f%%\n", rank+1, p.Class, p.Probability*100)
	}
	return nil
}

func serve(args []string) error {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	addr := fs.String("addr", ":8080", "listen address")
	c, err := load(fs, args)
	if err != nil {
		return err
	}

	log.Printf("serving on %s (device: %s)", *addr, c.Device())
	return api.NewServer(c).Run(*addr)
}
