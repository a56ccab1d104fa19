/*
Copyright © 2019 the GridCouple authors.
This file is part of GridCouple.

GridCouple is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

GridCouple is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with GridCouple.  If not, see <http://www.gnu.org/licenses/>.
*/

// Package gridcoupleutil contains the command-line interface and
// configuration handling for GridCouple.
package gridcoupleutil

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/lnashier/viper"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// Version is the version of the GridCouple command-line tool.
const Version = "0.1.0"

// Cfg holds configuration information.
var Cfg *viper.Viper

var options []struct {
	name, usage, shorthand string
	defaultVal             interface{}
	flagsets               []*pflag.FlagSet
}

func init() {
	// Options are the configuration options available to GridCouple.
	options = []struct {
		name, usage, shorthand string
		defaultVal             interface{}
		flagsets               []*pflag.FlagSet
	}{
		{
			name: "config",
			usage: `
              config specifies the configuration file location.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "LogLevel",
			usage: `
              LogLevel is the minimum level of log messages that are
              printed. Valid options are "debug", "info", "warning" and "error".`,
			defaultVal: "info",
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "Source.IM",
			usage: `
              Source.IM is the number of cells in the east-west direction
              of the source lon/lat grid.`,
			defaultVal: 72,
			flagsets:   []*pflag.FlagSet{gridCmd.Flags(), matrixCmd.Flags()},
		},
		{
			name: "Source.JM",
			usage: `
              Source.JM is the number of cells in the north-south direction
              of the source lon/lat grid.`,
			defaultVal: 46,
			flagsets:   []*pflag.FlagSet{gridCmd.Flags(), matrixCmd.Flags()},
		},
		{
			name: "Source.Offi",
			usage: `
              Source.Offi is the offset, in cells, of the western edge of the first
              column of the source grid from the International Date Line.`,
			defaultVal: 0.0,
			flagsets:   []*pflag.FlagSet{gridCmd.Flags(), matrixCmd.Flags()},
		},
		{
			name: "Source.Dlat",
			usage: `
              Source.Dlat is the height of the non-polar rows of the source grid
              in minutes of latitude.`,
			defaultVal: 240.0,
			flagsets:   []*pflag.FlagSet{gridCmd.Flags(), matrixCmd.Flags()},
		},
		{
			name: "Dest.IM",
			usage: `
              Dest.IM is the number of cells in the east-west direction
              of the destination lon/lat grid.`,
			defaultVal: 144,
			flagsets:   []*pflag.FlagSet{matrixCmd.Flags()},
		},
		{
			name: "Dest.JM",
			usage: `
              Dest.JM is the number of cells in the north-south direction
              of the destination lon/lat grid.`,
			defaultVal: 90,
			flagsets:   []*pflag.FlagSet{matrixCmd.Flags()},
		},
		{
			name: "Dest.Offi",
			usage: `
              Dest.Offi is the offset, in cells, of the western edge of the first
              column of the destination grid from the International Date Line.`,
			defaultVal: 0.0,
			flagsets:   []*pflag.FlagSet{matrixCmd.Flags()},
		},
		{
			name: "Dest.Dlat",
			usage: `
              Dest.Dlat is the height of the non-polar rows of the destination grid
              in minutes of latitude.`,
			defaultVal: 120.0,
			flagsets:   []*pflag.FlagSet{matrixCmd.Flags()},
		},
		{
			name: "datmis",
			usage: `
              datmis is the value given to destination cells that do not overlap
              any source cell with nonzero weight.`,
			defaultVal: -1e30,
			flagsets:   []*pflag.FlagSet{matrixCmd.Flags()},
		},
		{
			name: "tolerance",
			usage: `
              tolerance is the largest allowed difference between 1 and the sum
              of any row of the regridding matrix.`,
			defaultVal: 1e-9,
			flagsets:   []*pflag.FlagSet{matrixCmd.Flags()},
		},
		{
			name: "Bands",
			usage: `
              Bands is the number of latitude bands of the destination grid
              whose regridding matrices are computed concurrently.`,
			defaultVal: 4,
			flagsets:   []*pflag.FlagSet{matrixCmd.Flags()},
		},
		{
			name: "GridName",
			usage: `
              GridName is the name of the grid in the NetCDF file. It is used as the
              prefix of the grid's variables.`,
			defaultVal: "grid",
			flagsets:   []*pflag.FlagSet{gridCmd.Flags(), shpCmd.Flags()},
		},
		{
			name: "InputFile",
			usage: `
              InputFile is the path to a NetCDF file holding a grid. It can
              include environment variables and can be an http(s) URL or a
              blob storage location ('file://', 'gs://' or 's3://').`,
			defaultVal: "grid.nc",
			flagsets:   []*pflag.FlagSet{shpCmd.Flags()},
		},
		{
			name: "OutputFile",
			usage: `
              OutputFile is the path to the desired output file location. It can
              include environment variables and can be a blob storage location
              ('file://', 'gs://' or 's3://').`,
			defaultVal: "gridcouple_output.nc",
			flagsets:   []*pflag.FlagSet{gridCmd.Flags(), matrixCmd.Flags(), shpCmd.Flags()},
		},
	}

	Cfg = viper.New()

	// Set the prefix for configuration environment variables.
	Cfg.SetEnvPrefix("GRIDCOUPLE")

	for _, option := range options {
		for i, set := range option.flagsets {
			if i != 0 { // We don't want to create the same flag twice.
				set.AddFlag(option.flagsets[0].Lookup(option.name))
				continue
			}
			switch v := option.defaultVal.(type) {
			case string:
				set.StringP(option.name, option.shorthand, v, option.usage)
			case int:
				set.IntP(option.name, option.shorthand, v, option.usage)
			case float64:
				set.Float64P(option.name, option.shorthand, v, option.usage)
			default:
				panic("invalid argument type")
			}
			Cfg.BindPFlag(option.name, set.Lookup(option.name))
		}
	}
}

func init() {
	// Link the commands together.
	Root.AddCommand(versionCmd)
	Root.AddCommand(gridCmd)
	Root.AddCommand(matrixCmd)
	Root.AddCommand(shpCmd)
}

// setConfig finds and reads in the configuration file, if there is one,
// and configures logging.
func setConfig() error {
	if cfgpath := Cfg.GetString("config"); cfgpath != "" {
		Cfg.SetConfigFile(os.ExpandEnv(cfgpath))
		if err := Cfg.ReadInConfig(); err != nil {
			return fmt.Errorf("gridcouple: problem reading configuration file: %v", err)
		}
	}
	level, err := logrus.ParseLevel(Cfg.GetString("LogLevel"))
	if err != nil {
		return fmt.Errorf("gridcouple: invalid LogLevel: %v", err)
	}
	logrus.SetLevel(level)
	logrus.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: time.RFC3339,
	})
	return nil
}

// Root is the main command.
var Root = &cobra.Command{
	Use:   "gridcouple",
	Short: "Conservative regridding between model grids.",
	Long: `GridCouple builds grids and conservative regridding matrices for coupling
models that run on different grids. Use the subcommands specified below to
access its functionality.

Refer to the subcommand documentation for configuration options and default settings.
Configuration can be changed by using a configuration file (and providing the
path to the file using the --config flag), by using command-line arguments,
or by setting environment variables in the format 'GRIDCOUPLE_var' where 'var' is the
name of the variable to be set.
Refer to https://github.com/spf13/viper for additional configuration information.`,
	DisableAutoGenTag: true,
	PersistentPreRunE: func(*cobra.Command, []string) error { return setConfig() },
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Long:  "version prints the version number of this version of GridCouple.",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Printf("GridCouple v%s\n", Version)
	},
	DisableAutoGenTag: true,
}

// gridCmd is a command that writes a lon/lat grid to a file.
var gridCmd = &cobra.Command{
	Use:   "grid",
	Short: "Create a lon/lat grid",
	Long: `grid creates the lon/lat grid described by the Source options
and saves it as a NetCDF file at OutputFile.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		g, err := HntrGridConfig(Cfg, "Source")
		if err != nil {
			return err
		}
		up := new(uploader)
		out, err := up.maybeUpload(os.ExpandEnv(Cfg.GetString("OutputFile")))
		if err != nil {
			return err
		}
		if err := WriteLonLatGrid(out, Cfg.GetString("GridName"), g); err != nil {
			return err
		}
		return up.upload(context.Background())
	},
	DisableAutoGenTag: true,
}

// matrixCmd is a command that creates a regridding matrix.
var matrixCmd = &cobra.Command{
	Use:   "matrix",
	Short: "Create a regridding matrix",
	Long: `matrix creates the conservative regridding matrix from the Source
grid to the Dest grid, checks that each of its rows sums to 1 within
tolerance, and saves it along with both grids as a NetCDF file at OutputFile.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		src, err := HntrGridConfig(Cfg, "Source")
		if err != nil {
			return err
		}
		dst, err := HntrGridConfig(Cfg, "Dest")
		if err != nil {
			return err
		}
		ctx := context.Background()
		up := new(uploader)
		out, err := up.maybeUpload(os.ExpandEnv(Cfg.GetString("OutputFile")))
		if err != nil {
			return err
		}
		err = WriteMatrix(ctx, out, src, dst,
			Cfg.GetFloat64("datmis"), Cfg.GetFloat64("tolerance"), Cfg.GetInt("Bands"))
		if err != nil {
			return err
		}
		return up.upload(ctx)
	},
	DisableAutoGenTag: true,
}

// shpCmd is a command that converts a stored grid to a shapefile.
var shpCmd = &cobra.Command{
	Use:   "shp",
	Short: "Convert a grid to a shapefile",
	Long: `shp reads the grid named GridName from the NetCDF file InputFile and
writes its cells to the shapefile OutputFile.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		in, err := maybeDownload(ctx, os.ExpandEnv(Cfg.GetString("InputFile")))
		if err != nil {
			return err
		}
		up := new(uploader)
		out, err := up.maybeUpload(os.ExpandEnv(Cfg.GetString("OutputFile")))
		if err != nil {
			return err
		}
		if err := WriteShapefile(in, Cfg.GetString("GridName"), out); err != nil {
			return err
		}
		return up.upload(ctx)
	},
	DisableAutoGenTag: true,
}
