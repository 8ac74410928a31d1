// Command eras segments participation records into periods and labels
// them with curated political-system periods.
package main

func main() {
	Execute()
}
