// Package main provides the xrrlab CLI for X-ray reflectivity analysis of thin-film stacks.
package main

func main() {
	Execute()
}
