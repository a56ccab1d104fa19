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

// Command gridcouple is a command-line interface for building grids and
// conservative regridding matrices.
package main

import (
	"fmt"
	"os"

	"github.com/spatialmodel/gridcouple/gridcoupleutil"
)

func main() {
	if err := gridcoupleutil.Root.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(-1)
	}
}
