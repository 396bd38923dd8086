// Command ledaps maintains the LEDAPS ancillary archive and runs the scene
// processing pipeline.
//
// Subcommands:
//
//	ledaps ancillary update   refresh NCEP reanalysis years
//	ledaps ancillary scan     report per-day ancillary availability
//	ledaps ancillary purge    delete one year of REANALYSIS artifacts
//	ledaps ancillary history  list recorded update outcomes
//	ledaps run                run lndpm, lndcal and optionally lndsr for a scene
//	ledaps deps               check the external tools
//	ledaps status             check directories, archive and tools
//	ledaps config init|validate
package main
