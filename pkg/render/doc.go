// Package render turns analyzer reports and comparisons into terminal
// tables, ASCII charts, Markdown, JSON and HTML.
//
// Terminal output uses go-pretty tables and fatih/color severities. Color is
// controlled by a Theme; see ColorEnabled for the NO_COLOR rules. File
// exports are written atomically: a temp file in the target directory is
// renamed over the destination.
package render
