// Package cli implements the tidemark command line on top of cobra.
//
// Commands talk to the core through the driving ports held in package
// variables. cmd/tidemark assigns a Bootstrap function that builds them
// once the persistent flags are parsed; tests assign the variables
// directly with SetServices.
package cli
