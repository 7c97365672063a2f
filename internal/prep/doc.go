// Package prep turns a canonical card image into the set of enhanced
// title-region variants fed to text recognition.
//
// The title region is a fixed fractional crop of the card face. Each
// preprocessing recipe produces one independent binarized variant of that
// crop; recognition later competes the variants against each other, so the
// recipes deliberately overlap in intent (global threshold, local
// threshold, equalized threshold, inverted, sharpened) rather than trying
// to be individually perfect. All recipes are stateless and safe to run
// concurrently.
package prep
