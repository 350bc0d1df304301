// Package umpire builds the home-plate umpire analytics file.
//
// Per official it sums plate appearances, strikeouts, walks and runs over
// every completed game in the window, then derives K%, BB% and runs per game
// from the totals.
package umpire
